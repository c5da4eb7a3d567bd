// Package mqtt feeds telemetry published on an MQTT broker into the
// automation pipeline.
package mqtt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/automation"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/metrics"
	"github.com/urmzd/hearth/pkg/sensor"
)

const connectTimeout = 10 * time.Second

// Ingester consumes decoded batches. *automation.Service implements it.
type Ingester interface {
	Ingest(ctx context.Context, b sensor.Batch) (automation.Result, error)
}

// Subscriber listens on a topic filter and ingests every JSON batch. Topics
// of the form <prefix>/<location>/<device_id> fill in a missing envelope.
type Subscriber struct {
	client paho.Client
	topic  string
	qos    byte
	ing    Ingester

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a subscriber. Nothing connects until Start.
func New(cfg config.MQTT, ing Ingester) *Subscriber {
	s := &Subscriber{topic: cfg.Topic, qos: cfg.QoS, ing: ing}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "hearth"
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(false).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Str("broker", cfg.Broker).Msg("MQTT connection lost")
		})
	s.client = paho.NewClient(opts)
	return s
}

// Start connects and subscribes. Messages are processed until ctx is
// cancelled or Stop is called.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect: timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// onConnect (re)subscribes; it runs after every reconnect.
func (s *Subscriber) onConnect(c paho.Client) {
	token := c.Subscribe(s.topic, s.qos, func(_ paho.Client, msg paho.Message) {
		s.HandleMessage(s.context(), msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", s.topic).Msg("MQTT subscribe failed")
		return
	}
	log.Info().Str("topic", s.topic).Uint8("qos", s.qos).Msg("MQTT subscribed")
}

func (s *Subscriber) context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Stop unsubscribes and disconnects.
func (s *Subscriber) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.topic).WaitTimeout(time.Second)
		s.client.Disconnect(250)
	}
}

// HandleMessage decodes and ingests one payload. Failures are logged and
// counted, never returned: a bad message must not stall the subscription.
func (s *Subscriber) HandleMessage(ctx context.Context, topic string, payload []byte) {
	b, err := sensor.DecodeJSON(bytes.NewReader(payload))
	if err != nil {
		metrics.IncMQTTMessage("malformed")
		log.Warn().Err(err).Str("topic", topic).Msg("Dropping MQTT message")
		return
	}
	fillFromTopic(&b, s.topic, topic)

	res, err := s.ing.Ingest(ctx, b)
	if err != nil {
		result := "error"
		if errors.Is(err, sensor.ErrInvalidEnvelope) {
			result = "rejected"
		}
		metrics.IncMQTTMessage(result)
		log.Warn().Err(err).Str("topic", topic).Msg("MQTT batch rejected")
		return
	}
	metrics.IncMQTTMessage("ok")
	log.Debug().
		Str("topic", topic).
		Str("device_id", res.DeviceID).
		Int("commands", len(res.Commands)).
		Msg("MQTT batch ingested")
}

// fillFromTopic takes location and device id from the two topic levels
// after the filter's prefix when the payload leaves them out.
func fillFromTopic(b *sensor.Batch, filter, topic string) {
	prefix := strings.TrimSuffix(strings.TrimSuffix(filter, "#"), "/")
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return
	}
	parts := strings.Split(rest, "/")
	if b.Location == "" && len(parts) >= 1 {
		b.Location = parts[0]
	}
	if b.DeviceID == "" && len(parts) >= 2 {
		b.DeviceID = parts[1]
	}
}
