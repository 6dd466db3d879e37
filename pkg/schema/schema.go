// Package schema validates every persisted blob against an explicit shape and
// tags it with a version for forward migration. It is pure: no side effects,
// no storage access. The storage layer depends on it to never trust raw bytes.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind describes one persisted category: its current schema version, a
// validator for the unwrapped data and a default used when validation fails.
type Kind struct {
	Name     string
	Version  int
	Validate func(data json.RawMessage) error
	Default  func() interface{}
}

// Envelope is the versioned wrapper persisted around every blob.
type Envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	Data          json.RawMessage `json:"data"`
}

// Result is the outcome of normalizing a raw persisted value.
type Result struct {
	// Data is the validated, unwrapped value, or the kind's default.
	Data json.RawMessage
	// ShouldRewrite signals the caller to persist the value again in the
	// current envelope shape (legacy bare value, or an older version).
	ShouldRewrite bool
	// Reset signals the value failed validation and was replaced by the
	// kind's default.
	Reset bool
}

// DefaultJSON returns the kind's default value serialized to JSON.
func (k Kind) DefaultJSON() json.RawMessage {
	raw, err := json.Marshal(k.Default())
	if err != nil {
		// Defaults are static values under the package author's control; a
		// marshalling failure here is a programming error.
		panic(fmt.Sprintf("schema: unmarshalable default for kind %s: %v", k.Name, err))
	}
	return raw
}

// Wrap serializes a value into the current versioned envelope.
func (k Kind) Wrap(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", k.Name, err)
	}
	return json.Marshal(Envelope{SchemaVersion: k.Version, Data: data})
}

// WrapRaw wraps already-serialized data into the current versioned envelope.
func (k Kind) WrapRaw(data json.RawMessage) ([]byte, error) {
	return json.Marshal(Envelope{SchemaVersion: k.Version, Data: data})
}

// Normalize accepts either a versioned envelope or a bare legacy value and
// returns the validated data. Corrupted or schema-mismatched data resets to
// the kind's default rather than failing: data safety over strict
// correctness. It never returns an error by design; callers wanting strict
// behavior check Result.Reset.
func (k Kind) Normalize(raw []byte) Result {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Result{Data: k.DefaultJSON(), ShouldRewrite: true, Reset: true}
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.SchemaVersion > 0 && len(env.Data) > 0 {
		if env.SchemaVersion > k.Version {
			// Data written by a newer build. Resetting would destroy it
			// silently, but we cannot interpret it either; default wins.
			return Result{Data: k.DefaultJSON(), ShouldRewrite: false, Reset: true}
		}
		if err := k.Validate(env.Data); err != nil {
			return Result{Data: k.DefaultJSON(), ShouldRewrite: true, Reset: true}
		}
		return Result{Data: env.Data, ShouldRewrite: env.SchemaVersion < k.Version}
	}

	// Bare legacy value, persisted before envelopes existed.
	var probe interface{}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Result{Data: k.DefaultJSON(), ShouldRewrite: true, Reset: true}
	}
	if err := k.Validate(raw); err != nil {
		return Result{Data: k.DefaultJSON(), ShouldRewrite: true, Reset: true}
	}
	return Result{Data: json.RawMessage(raw), ShouldRewrite: true}
}
