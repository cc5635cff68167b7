package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sdr-enthusiasts/acarshub-server/internal/config"
	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

// Publisher forwards every ingested message to an MQTT broker so
// downstream consumers (feeders, archivers) can tap the same stream the
// dashboard sees. Messages are published to <topic>/<protocol>.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *logger.Logger
}

// NewPublisher connects to the configured broker and returns a publisher.
func NewPublisher(cfg config.MQTTConfig, log *logger.Logger) (*Publisher, error) {
	pubLogger := log.Named("mqtt")

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("acarshub_%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		pubLogger.Info("Connected to MQTT broker", logger.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		pubLogger.Warn("MQTT connection lost", logger.Error(err))
	})

	p := &Publisher{
		client: mqtt.NewClient(opts),
		topic:  cfg.Topic,
		logger: pubLogger,
	}

	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return p, nil
}

// Publish sends one message to the broker. Publishing is fire and
// forget at QoS 0; a dropped message only costs a downstream consumer
// one frame it would have deduplicated anyway.
func (p *Publisher) Publish(msg *datalink.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("Failed to encode message for publishing",
			logger.Error(err),
			logger.String("uid", msg.UID))
		return
	}

	topic := p.topic + "/" + msg.Protocol
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			p.logger.Warn("Failed to publish message",
				logger.Error(token.Error()),
				logger.String("topic", topic))
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
	p.logger.Info("Disconnected from MQTT broker")
}
