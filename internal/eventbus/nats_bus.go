// Package eventbus publishes predictor events over NATS core subjects.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/abhisek/medpredict/internal/diagnosis"
)

const (
	// DefaultSubject is the subject prefix events are published under.
	DefaultSubject = "medpredict.events"

	defaultSource = "medpredict"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSConfig configures Connect.
type NATSConfig struct {
	URL     string
	Subject string
	Source  string
}

// NATSPublisher publishes each event to "<subject>.<type>".
type NATSPublisher struct {
	conn    Conn
	nc      *nats.Conn
	subject string
	source  string
}

// Connect dials NATS and returns a publisher that owns the connection.
func Connect(cfg NATSConfig) (*NATSPublisher, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("medpredict"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	p := NewPublisher(nc, cfg.Subject, cfg.Source)
	p.nc = nc
	return p, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, subject, source string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if source == "" {
		source = defaultSource
	}
	return &NATSPublisher{conn: conn, subject: subject, source: source}
}

// Publish sends evt as JSON.
func (p *NATSPublisher) Publish(_ context.Context, evt Event) error {
	if !evt.Validate() {
		return fmt.Errorf("invalid event: missing required fields")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject+"."+evt.Type, data); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

func (p *NATSPublisher) ModelTrained(ctx context.Context, evt diagnosis.TrainedEvent) error {
	return p.Publish(ctx, NewEvent(p.source, TypeModelTrained, evt.TrainedAt, map[string]any{
		"model_key":       evt.ModelKey,
		"samples_trained": evt.SamplesTrained,
		"diseases":        evt.Diseases,
		"symptoms":        evt.Symptoms,
	}))
}

func (p *NATSPublisher) PredictionCompleted(ctx context.Context, evt diagnosis.PredictedEvent) error {
	return p.Publish(ctx, NewEvent(p.source, TypePredictionCompleted, evt.At, map[string]any{
		"primary_disease":   evt.PrimaryDisease,
		"confidence":        evt.Confidence,
		"severity_category": string(evt.SeverityCategory),
		"candidates":        evt.Candidates,
	}))
}

// Close drains the connection if the publisher owns one.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
