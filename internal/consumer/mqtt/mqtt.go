// Package mqtt implements the queue-consuming collaborator on an MQTT
// broker: each queue name maps to a topic subscription.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/gjovs/serverkit/internal/consumer"
	"github.com/gjovs/serverkit/pkg/config"
)

// Server is an MQTT-backed consumer.QueueServer
type Server struct {
	client paho.Client
	qos    byte
	logger *zap.Logger
}

// NewServer connects to the broker
func NewServer(cfg *config.QueueConfig, logger *zap.Logger) (*Server, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", cfg.Broker, token.Error())
	}

	return &Server{
		client: client,
		qos:    byte(cfg.QoS),
		logger: logger.Named("mqtt"),
	}, nil
}

// Consume subscribes handler to the topic named by queue
func (s *Server) Consume(queue string, handler consumer.MessageHandler) error {
	token := s.client.Subscribe(queue, s.qos, func(c paho.Client, msg paho.Message) {
		if err := handler(context.Background(), msg.Payload()); err != nil {
			s.logger.Error("Message handler failed",
				zap.String("queue", queue), zap.Error(err))
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", queue, token.Error())
	}
	return nil
}

// Close disconnects from the broker
func (s *Server) Close() {
	s.client.Disconnect(250)
}
