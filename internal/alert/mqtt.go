package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Retain   bool

	// Timeout bounds connect and each publish. Default 5s.
	Timeout time.Duration
}

// mqttClient is the subset of mqtt.Client used here.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each alert as a JSON document.
type MQTT struct {
	client mqttClient
	opts   MQTTOptions
}

func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("alert: mqtt broker is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(opts.Timeout)
	client := mqtt.NewClient(co)

	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		// SetConnectRetry keeps trying in the background; publishes queue
		// until the broker is reachable.
		Logf("alert: mqtt broker %s not reachable yet, retrying in background", opts.Broker)
	} else if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("alert: mqtt connect %s: %w", opts.Broker, err)
	}
	return newMQTT(client, opts), nil
}

func newMQTT(client mqttClient, opts MQTTOptions) *MQTT {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &MQTT{client: client, opts: opts}
}

func (m *MQTT) Notify(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("alert: mqtt marshal: %w", err)
	}
	token := m.client.Publish(m.opts.Topic, m.opts.QoS, m.opts.Retain, payload)

	timer := time.NewTimer(m.opts.Timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("alert: mqtt publish %s: %w", m.opts.Topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("alert: mqtt publish %s: timed out after %s", m.opts.Topic, m.opts.Timeout)
	}
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
