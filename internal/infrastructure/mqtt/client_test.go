package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/config"
	"github.com/nerrad567/warehouse-desktop/internal/lifecycle"
	"github.com/nerrad567/warehouse-desktop/internal/ports"
	"github.com/nerrad567/warehouse-desktop/internal/readiness"
)

// testConfig targets a local Mosquitto at 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "warehouse-desktop-test",
		},
		QoS:            1,
		TopicPrefix:    "warehouse/desktop-test",
		ConnectTimeout: time.Second,
	}
}

// requireBroker skips the test when no broker is listening.
func requireBroker(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 200*time.Millisecond)
	if err != nil {
		t.Skip("no MQTT broker at 127.0.0.1:1883")
	}
	conn.Close() //nolint:errcheck // Probe only
}

func TestConnect(t *testing.T) {
	requireBroker(t)

	client, err := Connect(testConfig(), "test-connect")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := client.PublishRetained(client.Topics().State(), []byte(`{"state":"idle"}`)); err != nil {
		t.Errorf("PublishRetained() error = %v", err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() //nolint:errcheck // Free the port so the connect is refused

	cfg := testConfig()
	cfg.Broker.Port = port

	_, err = Connect(cfg, "refused")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if c.IsConnected() {
		t.Error("zero client reports connected")
	}
	if err := c.Publish("a/b", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v", err)
	}

	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	tests := []struct {
		name    string
		topic   string
		qos     byte
		payload []byte
		want    error
	}{
		{name: "empty topic", topic: "", qos: 1, want: ErrInvalidTopic},
		{name: "bad qos", topic: "a", qos: 3, want: ErrInvalidQoS},
		{name: "too large", topic: "a", qos: 1, payload: make([]byte, maxPayloadSize+1), want: ErrPublishFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		topics     Topics
		wantState  string
		wantStatus string
	}{
		{Topics{Prefix: "warehouse/desktop", Instance: "till-3"}, "warehouse/desktop/till-3/state", "warehouse/desktop/till-3/status"},
		{Topics{Prefix: "site/", Instance: "a/b#"}, "site/a_b_/state", "site/a_b_/status"},
		{Topics{}, "warehouse/desktop/local/state", "warehouse/desktop/local/status"},
	}
	for _, tt := range tests {
		if got := tt.topics.State(); got != tt.wantState {
			t.Errorf("State() = %q, want %q", got, tt.wantState)
		}
		if got := tt.topics.Status(); got != tt.wantStatus {
			t.Errorf("Status() = %q, want %q", got, tt.wantStatus)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "u"
	cfg.Auth.Password = "p"

	opts := buildClientOptions(cfg, "till-3")

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "warehouse-desktop-test-till-3" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Errorf("credentials not set")
	}
	if opts.ConnectRetry || !opts.AutoReconnect {
		t.Errorf("ConnectRetry = %v, AutoReconnect = %v", opts.ConnectRetry, opts.AutoReconnect)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig not set")
	}

	configureLWT(opts, Topics{Prefix: "p", Instance: "till-3"})
	if !opts.WillEnabled || opts.WillTopic != "p/till-3/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

func TestBuildStatusPayload(t *testing.T) {
	var p statusPayload
	if err := json.Unmarshal(buildStatusPayload("offline", "till-3", "graceful_shutdown"), &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p.Status != "offline" || p.Instance != "till-3" || p.Reason != "graceful_shutdown" || p.Timestamp == "" {
		t.Errorf("payload = %+v", p)
	}
}

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (f *fakePublisher) PublishRetained(topic string, payload []byte) error {
	f.topic = topic
	f.payload = payload
	return f.err
}

func TestLifecyclePublisher(t *testing.T) {
	pub := &fakePublisher{}
	p := NewLifecyclePublisherTo(pub, "warehouse/desktop/till-3/state")

	err := p.OnTransition(context.Background(), lifecycle.Transition{
		Session:   "s-1",
		From:      lifecycle.StateProbing,
		To:        lifecycle.StateDegradedReady,
		At:        time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		Endpoint:  ports.Endpoint{Host: "127.0.0.1", Port: 8082},
		PID:       99,
		Readiness: &readiness.Result{Outcome: readiness.TimedOut},
	})
	if err != nil {
		t.Fatalf("OnTransition() error = %v", err)
	}

	if pub.topic != "warehouse/desktop/till-3/state" {
		t.Errorf("topic = %q", pub.topic)
	}
	var got statePayload
	if err := json.Unmarshal(pub.payload, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.State != "degraded_ready" || got.Previous != "probing" || got.URL != "http://127.0.0.1:8082" {
		t.Errorf("payload = %+v", got)
	}
	if got.Outcome != "timed_out" || got.PID != 99 || got.Session != "s-1" {
		t.Errorf("payload = %+v", got)
	}

	pub.err = ErrNotConnected
	if err := p.OnTransition(context.Background(), lifecycle.Transition{To: lifecycle.StateRunning}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("OnTransition() error = %v, want ErrNotConnected", err)
	}
}
