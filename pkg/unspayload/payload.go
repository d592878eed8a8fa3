// Package unspayload defines the canonical Unified Namespace payload: the single,
// validated record shape that every downstream UNS consumer agrees on.
package unspayload

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// MinTimestampMillis is the earliest accepted timestamp (epoch milliseconds,
// November 2023). Readings stamped before it are assumed to come from a device
// with an unset clock.
const MinTimestampMillis int64 = 1_700_000_000_000

// Payload is the normalized reading published to the UNS. It can only be
// obtained through New or Parse, so every Payload satisfies the field
// constraints; its fields are read through accessors and never change.
type Payload struct {
	value     any
	timestamp int64
	quality   Quality
	unit      string
	assetID   string
	metadata  map[string]any
}

// wirePayload is the serialized form of a Payload.
type wirePayload struct {
	Value     any            `json:"value,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Quality   Quality        `json:"quality"`
	Unit      string         `json:"unit"`
	AssetID   string         `json:"asset_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Option customizes an optional field during construction.
type Option func(*options)

type options struct {
	timestamp *int64
	quality   Quality
	metadata  map[string]any
}

// WithTimestamp sets the reading time in epoch milliseconds.
func WithTimestamp(ms int64) Option {
	return func(o *options) {
		o.timestamp = &ms
	}
}

// WithTime sets the reading time from a time.Time, truncated to milliseconds.
func WithTime(t time.Time) Option {
	return WithTimestamp(t.UnixMilli())
}

// WithQuality overrides the default Good quality.
func WithQuality(q Quality) Option {
	return func(o *options) {
		o.quality = q
	}
}

// WithMetadata attaches free-form context. The map is copied; an empty map is
// the same as no metadata.
func WithMetadata(m map[string]any) Option {
	return func(o *options) {
		if len(m) == 0 {
			o.metadata = nil
			return
		}
		o.metadata = maps.Clone(m)
	}
}

// New builds a validated Payload. The timestamp defaults to the current time and
// the quality to Good. A *ValidationError is returned when the timestamp is
// earlier than MinTimestampMillis, when unit or assetID is empty, or when the
// quality is not one of the declared values.
func New(value any, unit, assetID string, opts ...Option) (Payload, error) {
	o := options{quality: QualityGood}
	for _, opt := range opts {
		opt(&o)
	}

	ts := time.Now().UnixMilli()
	if o.timestamp != nil {
		ts = *o.timestamp
	}

	p := Payload{
		value:     value,
		timestamp: ts,
		quality:   o.quality,
		unit:      unit,
		assetID:   assetID,
		metadata:  o.metadata,
	}
	if err := p.validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

func (p Payload) validate() error {
	if p.timestamp < MinTimestampMillis {
		return &ValidationError{
			Field:  "timestamp",
			Reason: fmt.Sprintf("%d is earlier than %d (Nov 2023)", p.timestamp, MinTimestampMillis),
		}
	}
	if !p.quality.Valid() {
		return &ValidationError{Field: "quality", Reason: fmt.Sprintf("%q is not one of Good, Bad, Uncertain", string(p.quality))}
	}
	if p.unit == "" {
		return &ValidationError{Field: "unit", Reason: "must not be empty"}
	}
	if p.assetID == "" {
		return &ValidationError{Field: "asset_id", Reason: "must not be empty"}
	}
	return nil
}

// Value returns the reading. It may be nil when the source carried no value.
func (p Payload) Value() any { return p.value }

// Timestamp returns the reading time in epoch milliseconds.
func (p Payload) Timestamp() int64 { return p.timestamp }

// Time returns the reading time as a UTC time.Time.
func (p Payload) Time() time.Time { return time.UnixMilli(p.timestamp).UTC() }

// Quality returns the reading quality.
func (p Payload) Quality() Quality { return p.quality }

// Unit returns the engineering unit of the value.
func (p Payload) Unit() string { return p.unit }

// AssetID returns the identifier of the physical asset the reading belongs to.
func (p Payload) AssetID() string { return p.assetID }

// Metadata returns a copy of the attached context, or nil if none was set.
func (p Payload) Metadata() map[string]any { return maps.Clone(p.metadata) }

// MarshalJSON encodes the payload in its compact wire form. Unset optional
// fields are omitted rather than written as null.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePayload{
		Value:     p.value,
		Timestamp: p.timestamp,
		Quality:   p.quality,
		Unit:      p.unit,
		AssetID:   p.assetID,
		Metadata:  p.metadata,
	})
}

// Marshal is shorthand for json.Marshal(p).
func (p Payload) Marshal() ([]byte, error) {
	return p.MarshalJSON()
}

// Parse decodes a serialized payload and re-applies every constraint, so a
// Payload read back from the bus is as trustworthy as one built with New.
// Numbers in the value and metadata are returned as json.Number.
func Parse(data []byte) (Payload, error) {
	var w struct {
		Value     any            `json:"value"`
		Timestamp *int64         `json:"timestamp"`
		Quality   *Quality       `json:"quality"`
		Unit      string         `json:"unit"`
		AssetID   string         `json:"asset_id"`
		Metadata  map[string]any `json:"metadata"`
	}
	if err := UnmarshalExact(data, &w); err != nil {
		return Payload{}, fmt.Errorf("failed to decode canonical payload: %w", err)
	}

	var opts []Option
	if w.Timestamp != nil {
		opts = append(opts, WithTimestamp(*w.Timestamp))
	}
	if w.Quality != nil {
		opts = append(opts, WithQuality(*w.Quality))
	}
	if w.Metadata != nil {
		opts = append(opts, WithMetadata(w.Metadata))
	}
	return New(w.Value, w.Unit, w.AssetID, opts...)
}
