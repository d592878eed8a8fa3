// Package router implements the contextualizing router: it turns a legacy
// reading on a legacy topic into a validated canonical payload and publishes it
// to the Unified Namespace topic the tag mapping names.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illmade-knight/uns-gateway/pkg/tagmap"
	"github.com/illmade-knight/uns-gateway/pkg/unspayload"
	"github.com/rs/zerolog"
)

// DefaultValueField is the field legacy PLCs put their reading in: {"v": 12.3}.
const DefaultValueField = "v"

// Router contextualizes and republishes legacy messages. Its only state is the
// immutable tag map, so Handle may be called from many goroutines at once.
type Router struct {
	tags         *tagmap.Map
	publisher    Publisher
	observers    []Observer
	valueField   string
	strictValues bool
	now          func() time.Time
	logger       zerolog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithObserver registers an Observer for every Outcome.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		r.observers = append(r.observers, o)
	}
}

// WithValueField changes the legacy record field the reading is read from.
func WithValueField(name string) Option {
	return func(r *Router) {
		if name != "" {
			r.valueField = name
		}
	}
}

// WithStrictValues makes a record without a reading a decode error. By default
// such a record is published with a null value.
func WithStrictValues(strict bool) Option {
	return func(r *Router) {
		r.strictValues = strict
	}
}

// WithClock overrides the wall clock used to stamp canonical payloads.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Router for the given mapping. A nil or empty mapping is a
// startup failure and is reported as a *tagmap.ConfigError.
func New(tags *tagmap.Map, publisher Publisher, logger zerolog.Logger, opts ...Option) (*Router, error) {
	if tags == nil || tags.Len() == 0 {
		return nil, &tagmap.ConfigError{Source: "router", Reason: "no tag mapping supplied"}
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}

	r := &Router{
		tags:       tags,
		publisher:  publisher,
		valueField: DefaultValueField,
		now:        time.Now,
		logger:     logger.With().Str("component", "Router").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Topics returns the legacy topics the transport must subscribe to: exactly one
// per mapping key, with no wildcards.
func (r *Router) Topics() []string {
	return r.tags.Topics()
}

// Handle runs one message through decode, contextualize, normalize and
// dispatch. It never returns an error: every failure is local to the message,
// which is dropped and reported through the returned Outcome and the observers.
func (r *Router) Handle(ctx context.Context, topic string, raw []byte) Outcome {
	start := time.Now()
	out := r.handle(ctx, topic, raw)
	out.SourceTopic = topic
	out.Duration = time.Since(start)

	r.logOutcome(out)
	for _, o := range r.observers {
		o.Observe(out)
	}
	return out
}

func (r *Router) handle(ctx context.Context, topic string, raw []byte) Outcome {
	// 1. Ingest the legacy record.
	var record map[string]any
	if err := unspayload.UnmarshalExact(raw, &record); err != nil {
		return Outcome{Kind: OutcomeDecodeError, Err: &DecodeError{Topic: topic, Reason: "invalid JSON", Err: err}}
	}
	if record == nil {
		return Outcome{Kind: OutcomeDecodeError, Err: &DecodeError{Topic: topic, Reason: "body is not a JSON object"}}
	}

	// 2. Contextualize.
	entry, ok := r.tags.Lookup(topic)
	if !ok {
		return Outcome{Kind: OutcomeUnroutable}
	}

	value := record[r.valueField]
	if value == nil && r.strictValues {
		return Outcome{
			Kind:             OutcomeDecodeError,
			DestinationTopic: entry.UNSTopic,
			Err:              &DecodeError{Topic: topic, Reason: fmt.Sprintf("missing reading field %q", r.valueField)},
		}
	}

	out := Outcome{DestinationTopic: entry.UNSTopic, RawValue: value, Unit: entry.Unit}

	// 3. Normalize.
	payload, err := unspayload.New(value, entry.Unit, entry.AssetID,
		unspayload.WithTime(r.now()),
		unspayload.WithMetadata(map[string]any{"description": entry.Description}),
	)
	if err != nil {
		out.Kind = OutcomeValidationError
		out.Err = err
		return out
	}
	data, err := payload.Marshal()
	if err != nil {
		out.Kind = OutcomeValidationError
		out.Err = fmt.Errorf("failed to serialize canonical payload: %w", err)
		return out
	}

	// 4. Dispatch, retained so new subscribers see the latest value at once.
	if err := r.publisher.Publish(ctx, entry.UNSTopic, data, true); err != nil {
		out.Kind = OutcomePublishError
		out.Err = err
		return out
	}

	out.Kind = OutcomeTransformed
	return out
}

func (r *Router) logOutcome(o Outcome) {
	switch o.Kind {
	case OutcomeTransformed:
		r.logger.Debug().Str("source", o.SourceTopic).Str("destination", o.DestinationTopic).Msg("Message transformed and published.")
	case OutcomeUnroutable:
		r.logger.Debug().Str("source", o.SourceTopic).Msg("No mapping for topic, discarding message.")
	case OutcomeDecodeError:
		r.logger.Warn().Err(o.Err).Str("source", o.SourceTopic).Msg("Invalid legacy message, dropping.")
	case OutcomeValidationError:
		var vErr *unspayload.ValidationError
		evt := r.logger.Error().Err(o.Err).Str("source", o.SourceTopic)
		if errors.As(o.Err, &vErr) {
			evt = evt.Str("field", vErr.Field)
		}
		evt.Msg("Canonical payload failed validation, dropping.")
	case OutcomePublishError:
		r.logger.Error().Err(o.Err).Str("source", o.SourceTopic).Str("destination", o.DestinationTopic).Msg("Failed to publish canonical payload, dropping.")
	}
}
