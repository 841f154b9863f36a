package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/dukerupert/famfund/internal/model"
)

// AlertMessage is the broker payload for one threshold alert.
type AlertMessage struct {
	FamilyCode string      `json:"familyCode,omitempty"`
	UserName   string      `json:"userName,omitempty"`
	Alert      model.Alert `json:"alert"`
	Timestamp  time.Time   `json:"timestamp"`
}

func NewAlertMessage(familyCode, userName string, alert model.Alert) AlertMessage {
	return AlertMessage{
		FamilyCode: familyCode,
		UserName:   userName,
		Alert:      alert,
		Timestamp:  time.Now().UTC(),
	}
}

func (m AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertMessageFromJSON(data []byte) (AlertMessage, error) {
	var m AlertMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return AlertMessage{}, fmt.Errorf("decode alert message: %w", err)
	}
	return m, nil
}

// AMQPSink publishes alerts to a durable direct exchange.
type AMQPSink struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
	logger   *slog.Logger
}

func DialAMQP(url, exchange, queue string, logger *slog.Logger) (*AMQPSink, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	s := &AMQPSink{conn: conn, channel: channel, exchange: exchange, queue: queue, logger: logger}
	if err := s.setup(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return s, nil
}

func (s *AMQPSink) setup() error {
	if err := s.channel.ExchangeDeclare(s.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := s.channel.QueueDeclare(s.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Routing key equals the queue name on the direct exchange.
	if err := s.channel.QueueBind(s.queue, s.queue, s.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (s *AMQPSink) Deliver(ctx context.Context, msg AlertMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = s.channel.PublishWithContext(ctx, s.exchange, s.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    msg.Timestamp,
		Type:         string(msg.Alert.Tier),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	s.logger.DebugContext(ctx, "published alert", "tier", msg.Alert.Tier, "subject", msg.Alert.Subject, "queue", s.queue)
	return nil
}

func (s *AMQPSink) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
