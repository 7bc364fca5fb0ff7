// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

/*
Package events publishes security audit events to RabbitMQ.

Downstream consumers (fraud detection, notification service, analytics) react
to authentication activity without querying the primary database.

Delivery Contract:

  - Best effort: publishing failures are logged and swallowed. A broker
    outage must never break a login.
  - Persistent: messages survive broker restarts once accepted.
  - Self-contained: each event carries enough data for consumers to act
    without a follow-up lookup.
*/
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// # Event Taxonomy

const (
	// QueueAuthEvents is the durable queue all auth events are published to.
	QueueAuthEvents = "auth.events"

	TypeLoginSucceeded  = "auth.login.succeeded"
	TypeLoginFailed     = "auth.login.failed"
	TypeAccountLocked   = "auth.account.locked"
	TypeLogout          = "auth.logout"
	TypePasswordChanged = "auth.password.changed"
	TypeSignedUp        = "auth.signed_up"
)

// AuthEvent is the payload published for every security-relevant action.
type AuthEvent struct {
	Type       string `json:"type"`
	AccountID  int64  `json:"account_id,omitempty"`
	Username   string `json:"username,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Publisher sends [AuthEvent] payloads to the broker.
//
// A Publisher constructed with an empty URL is disabled: Publish becomes a
// no-op. This lets local environments run without a broker.
type Publisher struct {
	url    string
	logger *slog.Logger
}

// NewPublisher creates a [Publisher]. An empty amqpURL disables publishing.
func NewPublisher(amqpURL string, logger *slog.Logger) *Publisher {
	if amqpURL == "" {
		logger.Info("event_publishing_disabled")
	}
	return &Publisher{url: amqpURL, logger: logger}
}

/*
Publish sends a single event to the auth.events queue.

Description: Dials per publish to keep failure handling simple; the volume of
auth events does not justify a managed long-lived channel. Any error is logged
and returned so the caller can choose to ignore it.

Parameters:
  - ctx: context.Context
  - event: AuthEvent

Returns:
  - error: Broker connectivity or publish failures
*/
func (publisher *Publisher) Publish(ctx context.Context, event AuthEvent) error {
	if publisher == nil || publisher.url == "" {
		return nil
	}

	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}

	connection, err := amqp.Dial(publisher.url)
	if err != nil {
		publisher.logger.Warn("event_publish_dial_failed", slog.Any("error", err))
		return err
	}
	defer func() { _ = connection.Close() }()

	channel, err := connection.Channel()
	if err != nil {
		publisher.logger.Warn("event_publish_channel_failed", slog.Any("error", err))
		return err
	}
	defer func() { _ = channel.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := channel.QueueDeclare(
		QueueAuthEvents, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		publisher.logger.Warn("event_publish_declare_failed", slog.Any("error", err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		publisher.logger.Warn("event_publish_marshal_failed", slog.Any("error", err))
		return err
	}

	message := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := channel.PublishWithContext(ctx,
		"",              // default exchange
		QueueAuthEvents, // routing key = queue name
		false,           // mandatory
		false,           // immediate
		message,
	); err != nil {
		publisher.logger.Warn("event_publish_failed",
			slog.String("event_type", event.Type),
			slog.Any("error", err),
		)
		return err
	}

	return nil
}
