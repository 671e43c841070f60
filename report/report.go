// Package report delivers distribution events to logs and archives.
package report

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// LogSink writes every event as one structured log line.
type LogSink struct {
	logger *slog.Logger
}

var _ distribution.EventSink = (*LogSink)(nil)

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, ev distribution.Event) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "event",
		slog.String("name", ev.EventName()),
		slog.Any("data", ev))
}

// MultiSink fans events out to every sink in order.
type MultiSink []distribution.EventSink

func (m MultiSink) Emit(ctx context.Context, ev distribution.Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// Envelope is the JSON form of an event.
type Envelope struct {
	Name  string             `json:"name"`
	Event distribution.Event `json:"event"`
}

func Marshal(ev distribution.Event) ([]byte, error) {
	return json.Marshal(Envelope{Name: ev.EventName(), Event: ev})
}
