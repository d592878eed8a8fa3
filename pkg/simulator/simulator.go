// Package simulator emulates brownfield PLCs that publish bare readings on
// legacy register topics.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Tag is one simulated register and the range its readings fall in.
type Tag struct {
	Topic string
	Min   float64
	Max   float64
}

// DefaultTags are the three registers of the demo line.
var DefaultTags = []Tag{
	{Topic: "legacy/plc_01/register_4001", Min: 150.0, Max: 220.0}, // oven temperature, °C
	{Topic: "legacy/plc_01/register_4002", Min: 0.5, Max: 2.5},     // belt speed, m/s
	{Topic: "legacy/plc_01/register_4003", Min: 80.0, Max: 120.0},  // pressure, bar
}

// DefaultInterval is the pause between two rounds of readings.
const DefaultInterval = 2 * time.Second

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
}

// Simulator publishes one {"v": x} reading per tag every interval.
type Simulator struct {
	tags      []Tag
	publisher Publisher
	interval  time.Duration
	rng       *rand.Rand
	logger    zerolog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithInterval sets the pause between rounds.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRand sets the random source, for reproducible readings.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// New creates a Simulator for tags.
func New(tags []Tag, publisher Publisher, logger zerolog.Logger, opts ...Option) (*Simulator, error) {
	if publisher == nil {
		return nil, errors.New("publisher cannot be nil")
	}
	if len(tags) == 0 {
		return nil, errors.New("at least one tag is required")
	}
	for _, t := range tags {
		if t.Topic == "" {
			return nil, errors.New("tag topic cannot be empty")
		}
		if t.Min > t.Max {
			return nil, fmt.Errorf("tag %s: min %v is greater than max %v", t.Topic, t.Min, t.Max)
		}
	}

	s := &Simulator{
		tags:      append([]Tag(nil), tags...),
		publisher: publisher,
		interval:  DefaultInterval,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		logger:    logger.With().Str("component", "PLCSimulator").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Reading returns a random value for t, rounded to two decimals.
func (s *Simulator) Reading(t Tag) float64 {
	v := t.Min + s.rng.Float64()*(t.Max-t.Min)
	return math.Round(v*100) / 100
}

// Tick publishes one reading for every tag. Readings are not retained, like
// those of a real PLC.
func (s *Simulator) Tick(ctx context.Context) error {
	var errs []error
	for _, t := range s.tags {
		value := s.Reading(t)
		payload, err := json.Marshal(map[string]float64{"v": value})
		if err != nil {
			return err
		}
		if err := s.publisher.Publish(ctx, t.Topic, payload, false); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", t.Topic, err))
			continue
		}
		s.logger.Info().Str("topic", t.Topic).Float64("value", value).Msg("Reading published.")
	}
	return errors.Join(errs...)
}

// Run ticks immediately and then every interval until ctx is done. Publish
// failures are logged and the loop carries on.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Some readings were not published.")
		}
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Simulator stopped.")
			return nil
		case <-ticker.C:
		}
	}
}
