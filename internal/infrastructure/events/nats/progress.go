package nats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// ProgressPublisher mirrors ingestion progress onto a NATS subject so an
// external UI can observe a long-running run. It is strictly an observer:
// publish failures are logged and never fail the pipeline.
type ProgressPublisher struct {
	conn    *nats.Conn
	subject string
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

func New(url, subject string) (*ProgressPublisher, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*ProgressPublisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("medvault"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &ProgressPublisher{conn: conn, subject: subject}, nil
}

type progressEvent struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Progress implements ports.ProgressSink.
func (p *ProgressPublisher) Progress(done, total int) {
	payload, err := json.Marshal(progressEvent{Done: done, Total: total})
	if err != nil {
		slog.Warn("progress_event_marshal_failed", "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		slog.Warn("progress_event_publish_failed", "error", err)
	}
}

func (p *ProgressPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
