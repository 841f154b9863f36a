// Package push delivers threshold alerts to registered browsers as web push
// notifications.
package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/notify"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

const subscriber = "mailto:alerts@famfund.app"

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Subscriptions is where browser registrations are kept.
type Subscriptions interface {
	PushSubscriptions() ([]model.PushSubscription, error)
	RemovePushSubscription(endpoint string) error
}

// Service sends web push notifications and acts as an alert sink.
type Service struct {
	publicKey  string
	privateKey string
	subs       Subscriptions
	client     webpush.HTTPClient
	logger     *slog.Logger
}

var _ notify.AlertSink = (*Service)(nil)

func NewService(publicKey, privateKey string, subs Subscriptions, logger *slog.Logger) *Service {
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subs:       subs,
		client:     http.DefaultClient,
		logger:     logger.With("component", "push"),
	}
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send sends a push notification to a subscription.
func (s *Service) Send(ctx context.Context, sub model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      subscriber,
		TTL:             86400,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// AlertPayload renders an alert as a notification.
func AlertPayload(msg notify.AlertMessage) Payload {
	title := "Budget alert"
	switch msg.Alert.Check {
	case model.CheckCategoryLimits:
		title = "Category limit"
	case model.CheckGoalDeadlines:
		title = "Savings goal"
	case model.CheckProjection:
		title = "Spending forecast"
	}
	return Payload{
		Title: title,
		Body:  msg.Alert.Message,
		URL:   "/",
		Tag:   fmt.Sprintf("%s-%s", msg.Alert.Check, msg.Alert.Subject),
	}
}

// Deliver sends the alert to every registered browser. Expired registrations
// are removed.
func (s *Service) Deliver(ctx context.Context, msg notify.AlertMessage) error {
	subs, err := s.subs.PushSubscriptions()
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}

	payload := AlertPayload(msg)
	var errs []error
	for _, sub := range subs {
		err := s.Send(ctx, sub, payload)
		switch {
		case err == nil:
		case errors.Is(err, ErrExpired):
			s.logger.Info("removing expired push subscription", "device", sub.DeviceName)
			if rerr := s.subs.RemovePushSubscription(sub.Endpoint); rerr != nil {
				errs = append(errs, fmt.Errorf("remove expired subscription: %w", rerr))
			}
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}
