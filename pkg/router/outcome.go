package router

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// OutcomeKind classifies what happened to one inbound message.
type OutcomeKind int

const (
	// OutcomeTransformed means a canonical payload was published.
	OutcomeTransformed OutcomeKind = iota
	// OutcomeUnroutable means the topic has no mapping. This is expected noise
	// on an unfiltered legacy bus and is not an error.
	OutcomeUnroutable
	// OutcomeDecodeError means the body was not a usable JSON record.
	OutcomeDecodeError
	// OutcomeValidationError means the canonical payload failed a constraint.
	OutcomeValidationError
	// OutcomePublishError means the transport refused the canonical payload.
	OutcomePublishError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTransformed:
		return "transformed"
	case OutcomeUnroutable:
		return "unroutable"
	case OutcomeDecodeError:
		return "decode_error"
	case OutcomeValidationError:
		return "validation_error"
	case OutcomePublishError:
		return "publish_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the result of handling one message. It is an observability
// signal only; the message is never retried whatever the outcome.
type Outcome struct {
	Kind             OutcomeKind
	SourceTopic      string
	DestinationTopic string
	// RawValue is the reading as extracted from the legacy record.
	RawValue any
	// Unit is the canonical unit the reading was tagged with.
	Unit     string
	Err      error
	Duration time.Duration
}

// DecodeError reports a legacy message body that could not be read as a record.
type DecodeError struct {
	Topic  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("cannot decode message on %s: %s", e.Topic, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Observer receives every Outcome produced by the Router. Implementations are
// called synchronously from Handle and must be safe for concurrent use.
type Observer interface {
	Observe(o Outcome)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(o Outcome)

// Observe implements Observer.
func (f ObserverFunc) Observe(o Outcome) {
	f(o)
}

// NewTransformationRenderer returns an Observer that prints one line per
// successful transformation, showing the legacy topic, the UNS topic and the
// reading with its unit.
func NewTransformationRenderer(logger zerolog.Logger) Observer {
	logger = logger.With().Str("component", "TransformationRenderer").Logger()
	return ObserverFunc(func(o Outcome) {
		if o.Kind != OutcomeTransformed {
			return
		}
		logger.Info().
			Str("source", o.SourceTopic).
			Str("destination", o.DestinationTopic).
			Msgf("%s ➔ %s %v %s", o.SourceTopic, o.DestinationTopic, o.RawValue, o.Unit)
	})
}
