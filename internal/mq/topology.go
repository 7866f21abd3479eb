package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

const (
	// ExchangeEvents — обменник событий provisioning'а.
	ExchangeEvents Exchange = "provisioner.events"

	// QueueAudit — очередь со всеми событиями для аудита.
	QueueAudit Queue = "provisioner.audit"

	RoutingKeyRunStarted   RoutingKey = "run.started"
	RoutingKeyStepFinished RoutingKey = "step.finished"
	RoutingKeyRunFinished  RoutingKey = "run.finished"
	routingKeyAll          RoutingKey = "#"
)

// SetupTopology объявляет обменник и очередь аудита.
// Операция идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeEvents), // name
			amqp.ExchangeTopic,     // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}

		_, err = ch.QueueDeclare(
			string(QueueAudit), // name
			true,               // durable
			false,              // delete when unused
			false,              // exclusive
			false,              // no-wait
			nil,                // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueAudit, err)
		}

		err = ch.QueueBind(
			string(QueueAudit),     // queue name
			string(routingKeyAll),  // routing key
			string(ExchangeEvents), // exchange
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", QueueAudit, ExchangeEvents, err)
		}

		return nil
	})
}
