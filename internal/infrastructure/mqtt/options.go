package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout applies when the config leaves it unset.
	defaultConnectTimeout = 5 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 500 // milliseconds

	defaultKeepAlive = 30 * time.Second

	maxReconnectInterval = time.Minute

	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho options from config.
//
// The initial connect does not retry: a missing broker should be reported
// straight away. Once connected, the client reconnects on its own.
func buildClientOptions(cfg config.MQTTConfig, instance string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	opts.SetClientID(clientID(cfg.Broker.ClientID, instance))

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetConnectTimeout(connectTimeout(cfg))
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

func connectTimeout(cfg config.MQTTConfig) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return cfg.ConnectTimeout
	}
	return defaultConnectTimeout
}

// clientID makes the broker client id unique per instance so two machines
// sharing a config do not kick each other off.
func clientID(base, instance string) string {
	if base == "" {
		base = "warehouse-desktop"
	}
	return base + "-" + sanitizeSegment(instance)
}

// statusPayload is published retained on the status topic.
type statusPayload struct {
	Status    string `json:"status"`
	Instance  string `json:"instance"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func buildStatusPayload(status, instance, reason string) []byte {
	b, _ := json.Marshal(statusPayload{ //nolint:errcheck // Plain struct always marshals
		Status:    status,
		Instance:  instance,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}

// configureLWT makes the broker publish an offline status if the process
// disappears without a clean Close.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics) {
	payload := buildStatusPayload("offline", topics.Instance, "unexpected_disconnect")
	opts.SetBinaryWill(topics.Status(), payload, 1, true)
}
