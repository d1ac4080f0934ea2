// Package logging wires zerolog for the evaluation engine and the CLI.
// Output goes to stdout, optionally mirrored to a Loki endpoint so form
// evaluation runs can be correlated with the rest of the platform.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/shubhFreelance/formlogic/config"
)

// defaultAppLabel tags Loki streams when the settings file supplies none.
const defaultAppLabel = "formlogic"

// Setup builds the process logger from the logging settings. The returned
// stop function flushes the Loki client and must be called before exit.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	level, err := resolveLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	writers := []io.Writer{consoleWriter(cfg.Format)}
	stop := func() {}

	if cfg.Loki.Enabled {
		sink, err := newLokiSink(cfg.Loki)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, sink)
		stop = sink.close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().Logger().Level(level)
	return logger, stop, nil
}

func resolveLevel(raw string) (zerolog.Level, error) {
	if raw == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

func consoleWriter(format string) io.Writer {
	if strings.EqualFold(format, "text") {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return os.Stdout
}

// lokiSink forwards each rendered log line to Loki under a fixed label set.
type lokiSink struct {
	client *loki.Client
	labels model.LabelSet
}

func newLokiSink(cfg config.LokiConfig) (*lokiSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, fmt.Errorf("create loki client: %w", err)
	}

	labels := model.LabelSet{}
	for name, value := range cfg.Labels {
		labels[model.LabelName(name)] = model.LabelValue(value)
	}
	if len(labels) == 0 {
		labels["app"] = defaultAppLabel
	}
	return &lokiSink{client: client, labels: labels}, nil
}

func (s *lokiSink) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	if line == "" {
		return len(p), nil
	}
	err := s.client.Handle(s.labels, time.Now(), line)
	return len(p), err
}

func (s *lokiSink) close() {
	s.client.Stop()
}
