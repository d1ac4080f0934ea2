package logic

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/shubhFreelance/formlogic/telemetry"
)

type settings struct {
	logger    zerolog.Logger
	collector telemetry.Collector
}

// Option configures an Engine during construction.
type Option func(*settings) error

// WithLogger attaches a logger to the engine. The default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithCollector attaches a telemetry collector to the engine.
func WithCollector(collector telemetry.Collector) Option {
	return func(s *settings) error {
		if collector == nil {
			return errors.New("collector must not be nil")
		}
		s.collector = collector
		return nil
	}
}

func newSettings(opts []Option) (*settings, error) {
	s := &settings{
		logger:    zerolog.Nop(),
		collector: telemetry.Noop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}
