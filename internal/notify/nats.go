// Package notify publishes broken-reference events to NATS so external
// consumers (dashboards, issue automation) can react to failing checks.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/markcheck/internal/check"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "markcheck.broken"

// BrokenRefEvent describes one invalid reference found during a run.
type BrokenRefEvent struct {
	RunID          string    `json:"run_id"`
	File           string    `json:"file"`
	Line           int       `json:"line"`
	Kind           string    `json:"kind"`
	Target         string    `json:"target"`
	Local          bool      `json:"local"`
	StatusCode     int       `json:"status_code,omitempty"`
	Error          string    `json:"error,omitempty"`
	RedirectTarget string    `json:"redirect_target,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher sends broken-reference events over a NATS connection.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url, subject string) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url, nats.Name("markcheck"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", url, "subject", subject)
	return &Publisher{conn: conn, subject: subject}, nil
}

// PublishBroken emits one event per invalid result in the run. Publish
// failures are logged and do not interrupt the caller.
func (p *Publisher) PublishBroken(runID string, results map[string][]check.Result) {
	for file, fileResults := range results {
		for _, r := range fileResults {
			if r.Valid {
				continue
			}

			event := BrokenRefEvent{
				RunID:          runID,
				File:           file,
				Line:           r.Reference.Line,
				Kind:           string(r.Reference.Kind),
				Target:         r.Reference.Target,
				Local:          r.Local,
				StatusCode:     r.StatusCode,
				Error:          r.Err,
				RedirectTarget: r.RedirectTarget,
				Timestamp:      time.Now().UTC(),
			}

			data, err := json.Marshal(event)
			if err != nil {
				slog.Warn("Failed to marshal broken reference event", "target", r.Reference.Target, "error", err)
				continue
			}
			if err := p.conn.Publish(p.subject, data); err != nil {
				slog.Warn("Failed to publish broken reference event",
					"target", r.Reference.Target,
					"file", file,
					"error", err)
			}
		}
	}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.Flush()
	p.conn.Close()
}
