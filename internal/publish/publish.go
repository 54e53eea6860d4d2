// Package publish forwards live angles and calibration results to an MQTT
// broker.
package publish

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/jointangle/internal/monitoring"
	"github.com/banshee-data/jointangle/internal/session"
	"github.com/banshee-data/jointangle/internal/source"
)

const (
	DefaultPrefix  = "jointangle"
	publishTimeout = 2 * time.Second
	disconnectMS   = 250
)

var logf = monitoring.Subsystem("mqtt")

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes to <prefix>/angle and <prefix>/calibration.
type MQTTPublisher struct {
	client Client
	prefix string
}

// Dial connects to broker and returns a publisher.
func Dial(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	logf("connected to %s as %s", broker, clientID)
	return New(client, prefix), nil
}

// New wraps an already connected client.
func New(client Client, prefix string) *MQTTPublisher {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &MQTTPublisher{client: client, prefix: prefix}
}

func (p *MQTTPublisher) AngleTopic() string       { return p.prefix + "/angle" }
func (p *MQTTPublisher) CalibrationTopic() string { return p.prefix + "/calibration" }

// PublishAngle sends one sample at QoS 0.
func (p *MQTTPublisher) PublishAngle(s source.Sample) error {
	return p.send(p.AngleTopic(), false, s)
}

// PublishCalibration sends the latest calibration as a retained message so
// late subscribers see the model in use.
func (p *MQTTPublisher) PublishCalibration(c session.Calibration) error {
	return p.send(p.CalibrationTopic(), true, c)
}

func (p *MQTTPublisher) send(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(disconnectMS)
	return nil
}

// Nop discards everything. It stands in when no broker is configured.
type Nop struct{}

func (Nop) PublishAngle(source.Sample) error             { return nil }
func (Nop) PublishCalibration(session.Calibration) error { return nil }
func (Nop) Close() error                                 { return nil }
