// Copyright (C) 2025 Emberflow Labs (oss@emberflow.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checkpoint

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// Type Registry
// =============================================================================

// TypeRegistry resolves payload kind strings to concrete payload types at
// decode time. The environment performing recovery may differ from the one
// that wrote the checkpoint, so Decode takes the registry as an explicit
// argument instead of relying on ambient process state; kinds the supplied
// registry cannot resolve fall back to DefaultRegistry.
//
// Thread Safety:
//
//	TypeRegistry is safe for concurrent use.
type TypeRegistry struct {
	mu        sync.RWMutex
	factories map[string]func() Payload

	// wildcard, when set, resolves any kind the factory map does not.
	// Used by inspection tooling that has no domain types.
	wildcard func(kind string) Payload
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		factories: make(map[string]func() Payload),
	}
}

// NewInspectionRegistry creates a registry that resolves every payload
// kind to a RawPayload, preserving the undecoded body. Intended for
// operator tooling that inspects checkpoints without the owning domain's
// types; engines recovering real state should register concrete types
// instead.
func NewInspectionRegistry() *TypeRegistry {
	r := NewTypeRegistry()
	r.wildcard = func(kind string) Payload {
		return &RawPayload{Kind: kind}
	}
	return r
}

// Register associates a payload kind with a factory producing a fresh,
// unmarshal-ready instance. Registering an already-registered kind is an
// error; checkpoints must never silently change meaning.
func (r *TypeRegistry) Register(kind string, factory func() Payload) error {
	if kind == "" {
		return fmt.Errorf("%w: payload kind must not be empty", ErrInvalidInput)
	}
	if factory == nil {
		return fmt.Errorf("%w: factory must not be nil", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("%w: payload kind %q already registered", ErrInvalidInput, kind)
	}
	r.factories[kind] = factory
	return nil
}

// resolve returns a new payload instance for the kind, or false if this
// registry cannot resolve it.
func (r *TypeRegistry) resolve(kind string) (Payload, bool) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	wildcard := r.wildcard
	r.mu.RUnlock()

	if ok {
		return factory(), true
	}
	if wildcard != nil {
		return wildcard(kind), true
	}
	return nil, false
}

// DefaultRegistry is the fallback resolution mechanism. Decode consults it
// for kinds the caller-supplied registry cannot resolve, and uses it
// outright when no registry is supplied.
var DefaultRegistry = NewTypeRegistry()

// Register adds a payload kind to DefaultRegistry.
func Register(kind string, factory func() Payload) error {
	return DefaultRegistry.Register(kind, factory)
}

// RawPayload carries an undecoded payload body. It round-trips through the
// codec byte-for-byte, so inspection tooling can re-save what it loaded.
type RawPayload struct {
	// Kind is the payload kind string from the envelope.
	Kind string

	// Body is the payload's raw JSON.
	Body json.RawMessage
}

// PayloadKind returns the preserved kind string.
func (p *RawPayload) PayloadKind() string { return p.Kind }

// MarshalJSON emits the preserved body unchanged.
func (p *RawPayload) MarshalJSON() ([]byte, error) {
	if len(p.Body) == 0 {
		return []byte("null"), nil
	}
	return p.Body, nil
}

// UnmarshalJSON preserves the body without interpreting it.
func (p *RawPayload) UnmarshalJSON(data []byte) error {
	p.Body = append(p.Body[:0], data...)
	return nil
}

// =============================================================================
// Codec
// =============================================================================

// envelope is the on-disk form of a checkpoint. The payload travels as raw
// JSON under its kind string so the decoding side can resolve the concrete
// type through a registry.
type envelope struct {
	CoordinatorEndpoint string          `json:"coordinator_endpoint"`
	JobName             string          `json:"job_name"`
	AuxResources        []string        `json:"aux_resources,omitempty"`
	PayloadKind         string          `json:"payload_kind,omitempty"`
	Payload             json.RawMessage `json:"payload,omitempty"`
	SnapshotDir         string          `json:"snapshot_dir"`
	SnapshotInterval    time.Duration   `json:"snapshot_interval_ns"`
	Timestamp           time.Time       `json:"timestamp"`
	SnapshotID          string          `json:"snapshot_id"`
}

// Encode serializes a checkpoint to its byte envelope. Pure in-memory; no
// filesystem interaction.
func Encode(cp *Checkpoint) ([]byte, error) {
	if cp == nil {
		return nil, fmt.Errorf("%w: checkpoint must not be nil", ErrInvalidInput)
	}

	env := envelope{
		CoordinatorEndpoint: cp.CoordinatorEndpoint,
		JobName:             cp.JobName,
		AuxResources:        cp.AuxResources,
		SnapshotDir:         cp.SnapshotDir,
		SnapshotInterval:    cp.SnapshotInterval,
		Timestamp:           cp.Timestamp,
		SnapshotID:          cp.SnapshotID,
	}

	if cp.Payload != nil {
		body, err := json.Marshal(cp.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		env.PayloadKind = cp.Payload.PayloadKind()
		env.Payload = body
	}

	data, err := json.MarshalIndent(&env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Decode reconstructs a checkpoint from its byte envelope.
//
// Description:
//
//	The payload kind is resolved through the supplied registry first and
//	through DefaultRegistry only for kinds the supplied registry cannot
//	resolve. A nil registry means DefaultRegistry alone. Decode does not
//	validate; recovery validates separately so corrupt-but-parseable data
//	is rejected with a distinct error kind.
//
// Inputs:
//
//	data - The byte envelope.
//	registry - Caller-supplied resolution context. May be nil.
//
// Outputs:
//
//	*Checkpoint - The reconstructed checkpoint, owned by the caller.
//	error - Wraps ErrDecode for malformed bytes or unresolvable kinds.
func Decode(data []byte, registry *TypeRegistry) (*Checkpoint, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	cp := &Checkpoint{
		Timestamp:           env.Timestamp,
		CoordinatorEndpoint: env.CoordinatorEndpoint,
		JobName:             env.JobName,
		SnapshotDir:         env.SnapshotDir,
		SnapshotInterval:    env.SnapshotInterval,
		SnapshotID:          env.SnapshotID,
		AuxResources:        env.AuxResources,
	}

	if env.PayloadKind != "" {
		payload, err := resolvePayload(env.PayloadKind, registry)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return nil, fmt.Errorf("%w: unmarshal payload kind %q: %v", ErrDecode, env.PayloadKind, err)
		}
		cp.Payload = payload
	}

	return cp, nil
}

// resolvePayload resolves a kind through the supplied registry, then
// DefaultRegistry.
func resolvePayload(kind string, registry *TypeRegistry) (Payload, error) {
	if registry != nil {
		if payload, ok := registry.resolve(kind); ok {
			return payload, nil
		}
	}
	if payload, ok := DefaultRegistry.resolve(kind); ok {
		return payload, nil
	}
	return nil, fmt.Errorf("%w: unresolvable payload kind %q", ErrDecode, kind)
}
