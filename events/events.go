// Package events announces finished analyses on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/seo-optimizer/monitor/logging"
	"github.com/seo-optimizer/monitor/metrics"
)

type MessageType string

const AnalysisCompletedType MessageType = "analysis.completed"

// Scores mirrors the four persisted score columns.
type Scores struct {
	Performance   *int `json:"performance"`
	Accessibility *int `json:"accessibility"`
	SEO           *int `json:"seo"`
	BestPractices *int `json:"bestPractices"`
}

type AnalysisCompleted struct {
	Type       MessageType `json:"type"`
	AnalysisID string      `json:"analysisId"`
	URLID      string      `json:"urlId"`
	URL        string      `json:"url"`
	CreatedAt  time.Time   `json:"createdAt"`
	Scores     Scores      `json:"scores"`
}

type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, m AnalysisCompleted) error
}

// conn is the part of *nats.Conn the bus needs.
type conn interface {
	PublishMsg(m *nats.Msg) error
}

// Bus publishes events over a NATS connection.
type Bus struct {
	nc      conn
	metrics metrics.PublishRecorder
	log     logging.Logger
}

func New(nc conn, m metrics.PublishRecorder, log logging.Logger) *Bus {
	if m == nil {
		m = metrics.NewNoop()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Bus{nc: nc, metrics: m, log: log}
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("seo-monitor"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func (b *Bus) PublishAnalysisCompleted(ctx context.Context, m AnalysisCompleted) (err error) {
	defer func() {
		b.metrics.RecordPublish(string(AnalysisCompletedType), err == nil)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.Type = AnalysisCompletedType
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", AnalysisCompletedType, err)
	}

	msg := &nats.Msg{
		Subject: string(AnalysisCompletedType),
		Data:    data,
		Header:  make(nats.Header),
	}
	msg.Header.Set("Content-Type", "application/json")

	if err = b.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", AnalysisCompletedType, err)
	}

	b.log.Debug("Published event",
		logging.String("subject", msg.Subject),
		logging.String("analysis_id", m.AnalysisID),
	)
	return nil
}

// Noop drops every event. It stands in when no NATS server is configured.
type Noop struct{}

func (Noop) PublishAnalysisCompleted(context.Context, AnalysisCompleted) error { return nil }

var (
	_ Publisher = (*Bus)(nil)
	_ Publisher = Noop{}
	_ conn      = (*nats.Conn)(nil)
)
