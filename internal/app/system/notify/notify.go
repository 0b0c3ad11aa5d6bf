// internal/app/system/notify/notify.go

// Package notify delivers domain events to an external push relay.
//
// Delivery is best effort: a failed dispatch is logged and dropped, never
// propagated, so a notification outage cannot fail the data mutation that
// produced the event. Events are posted as JSON to a configured webhook;
// with no webhook configured the notifier is a logging no-op.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Event kinds emitted by the roster and pickup flows.
const (
	EventMemberEnrolled   = "member_enrolled"
	EventMemberUnenrolled = "member_unenrolled"
	EventGroupRenamed     = "group_renamed"
	EventPickupRequested  = "pickup_requested"
	EventPickupAnswered   = "pickup_answered"
)

// Event is the payload posted to the relay.
type Event struct {
	Kind    string            `json:"kind"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Fields  map[string]string `json:"fields,omitempty"`
	SentAt  time.Time         `json:"sent_at"`
	Service string            `json:"service"`
}

// Notifier posts events to the configured relay.
type Notifier struct {
	webhookURL string
	client     *http.Client
	log        *zap.Logger
}

// New builds a Notifier. An empty webhookURL disables delivery; events are
// still logged at Debug.
func New(webhookURL string, logger *zap.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		log:        logger,
	}
}

// Send dispatches one event. It never returns an error; failures are
// logged and dropped.
func (n *Notifier) Send(ctx context.Context, kind, title, body string, fields map[string]string) {
	ev := Event{
		Kind:    kind,
		Title:   title,
		Body:    body,
		Fields:  fields,
		SentAt:  time.Now().UTC(),
		Service: "maktabhub",
	}

	if n.webhookURL == "" {
		n.log.Debug("notification (no relay configured)",
			zap.String("kind", kind), zap.String("title", title))
		return
	}

	go func() {
		// Detach from the request context so an already-finished request
		// doesn't cancel the dispatch mid-flight.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := n.post(dctx, ev); err != nil {
			n.log.Warn("notification dispatch failed",
				zap.String("kind", kind), zap.Error(err))
		}
	}()
}

func (n *Notifier) post(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("relay returned %s", resp.Status)
	}
	return nil
}
