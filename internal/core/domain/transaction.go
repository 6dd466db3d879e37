package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhpk/randstr"
)

// TxType is the kind of portfolio event a transaction represents.
type TxType string

const (
	TxTypeBuy      TxType = "buy"
	TxTypeSell     TxType = "sell"
	TxTypeTransfer TxType = "transfer"
	TxTypeStake    TxType = "stake"
	TxTypeAirdrop  TxType = "airdrop"
)

// ParseTxType parses a transaction type from its string form.
func ParseTxType(s string) (TxType, error) {
	switch TxType(strings.ToLower(strings.TrimSpace(s))) {
	case TxTypeBuy:
		return TxTypeBuy, nil
	case TxTypeSell:
		return TxTypeSell, nil
	case TxTypeTransfer:
		return TxTypeTransfer, nil
	case TxTypeStake:
		return TxTypeStake, nil
	case TxTypeAirdrop:
		return TxTypeAirdrop, nil
	default:
		return "", ErrUnknownTxType
	}
}

// IsAcquisition returns whether the type creates a cost-basis lot. Incoming
// transfers are deliberately treated as acquisitions at face value, a known
// simplification that conflates wallet-to-wallet moves with purchases.
func (t TxType) IsAcquisition() bool {
	return t == TxTypeBuy || t == TxTypeAirdrop || t == TxTypeTransfer
}

// ManualHashPrefix marks user-entered transactions, the only ones that can be
// edited or deleted. Provider-synced transactions are append-only.
const ManualHashPrefix = "manual-"

// msEpochThreshold separates second-precision from millisecond-precision
// timestamps: values below 10^12 are assumed to be seconds. Sync adapters are
// expected to normalize to milliseconds before reaching the core; this
// heuristic only guards against legacy data.
const msEpochThreshold = int64(1e12)

// Transaction is a single portfolio event for some wallet. Amounts and EUR
// valuations are decimals; a zero ValueEUR means "unknown valuation", not
// "free".
type Transaction struct {
	ID        string          `json:"id"`
	WalletID  string          `json:"walletId"`
	Hash      string          `json:"hash"`
	Type      TxType          `json:"type"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	ValueEUR  decimal.Decimal `json:"valueEur"`
	Timestamp int64           `json:"timestamp"`
	Fee       decimal.Decimal `json:"fee,omitempty"`
	FeeEUR    decimal.Decimal `json:"feeEur,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// NewManualTransaction returns a user-entered transaction carrying the
// reserved manual hash prefix.
func NewManualTransaction(
	walletID string, txType TxType, asset string,
	amount, valueEUR decimal.Decimal, timestamp int64,
) (*Transaction, error) {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if len(walletID) <= 0 || len(asset) <= 0 || !amount.IsPositive() {
		return nil, ErrInvalidTransaction
	}
	if timestamp <= 0 {
		timestamp = time.Now().UnixMilli()
	}

	return &Transaction{
		ID:        uuid.NewString(),
		WalletID:  walletID,
		Hash:      ManualHashPrefix + randstr.Hex(16),
		Type:      txType,
		Asset:     asset,
		Amount:    amount,
		ValueEUR:  valueEUR,
		Timestamp: timestamp,
	}, nil
}

// Validate checks the transaction holds the minimum required fields.
func (t Transaction) Validate() error {
	if len(t.ID) <= 0 || len(t.WalletID) <= 0 || len(t.Asset) <= 0 {
		return ErrInvalidTransaction
	}
	if _, err := ParseTxType(string(t.Type)); err != nil {
		return err
	}
	return nil
}

// IsManual returns whether the transaction was entered by the user rather
// than synced from a provider.
func (t Transaction) IsManual() bool {
	return strings.HasPrefix(t.Hash, ManualHashPrefix)
}

// NormalizedTimestamp returns the transaction time in millisecond precision,
// promoting second-precision legacy values.
func (t Transaction) NormalizedTimestamp() int64 {
	if t.Timestamp > 0 && t.Timestamp < msEpochThreshold {
		return t.Timestamp * 1000
	}
	return t.Timestamp
}

// Year returns the UTC calendar year the transaction belongs to, the unit
// used for annual tax declarations.
func (t Transaction) Year() int {
	return time.UnixMilli(t.NormalizedTimestamp()).UTC().Year()
}

// NormalizedAsset returns the case-normalized asset symbol.
func (t Transaction) NormalizedAsset() string {
	return strings.ToUpper(strings.TrimSpace(t.Asset))
}
