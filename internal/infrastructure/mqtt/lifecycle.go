package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/warehouse-desktop/internal/lifecycle"
)

// RetainedPublisher is the part of Client the lifecycle publisher needs.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// LifecyclePublisher is a lifecycle.Observer publishing every transition,
// retained, to the instance state topic.
type LifecyclePublisher struct {
	pub   RetainedPublisher
	topic string
}

// NewLifecyclePublisher creates a publisher on client's state topic.
func NewLifecyclePublisher(client *Client) *LifecyclePublisher {
	return NewLifecyclePublisherTo(client, client.Topics().State())
}

// NewLifecyclePublisherTo creates a publisher writing to topic through pub.
func NewLifecyclePublisherTo(pub RetainedPublisher, topic string) *LifecyclePublisher {
	return &LifecyclePublisher{pub: pub, topic: topic}
}

// statePayload is the JSON published on the state topic.
type statePayload struct {
	Session   string `json:"session"`
	State     string `json:"state"`
	Previous  string `json:"previous"`
	URL       string `json:"url,omitempty"`
	Port      int    `json:"port,omitempty"`
	PID       int    `json:"pid,omitempty"`
	Outcome   string `json:"readiness,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// OnTransition implements lifecycle.Observer.
func (p *LifecyclePublisher) OnTransition(_ context.Context, t lifecycle.Transition) error {
	msg := statePayload{
		Session:   t.Session,
		State:     string(t.To),
		Previous:  string(t.From),
		PID:       t.PID,
		Error:     t.Error,
		Timestamp: t.At.UTC().Format(time.RFC3339Nano),
	}
	if !t.Endpoint.IsZero() {
		msg.URL = t.Endpoint.URL()
		msg.Port = t.Endpoint.Port
	}
	if t.Readiness != nil {
		msg.Outcome = string(t.Readiness.Outcome)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return p.pub.PublishRetained(p.topic, payload)
}
