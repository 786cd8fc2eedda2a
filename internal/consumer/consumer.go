package consumer

import (
	"encoding/base64"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventHandler processes one decoded queue message.
type EventHandler interface {
	HandleEvent(decodedMessage string) error
}

// ProcessMessage handles a single delivery:
// 1. Decodes the base64-encoded body
// 2. Calls the handler's HandleEvent method
// 3. ACKs on success, NACKs without requeue on failure
//
// Malformed messages are rejected rather than requeued so a bad payload
// cannot wedge the queue.
func ProcessMessage(logger *zap.Logger, queue string, msg amqp.Delivery, handler EventHandler) {
	decodedMessage, err := base64.StdEncoding.DecodeString(string(msg.Body))
	if err != nil {
		logger.Error("Failed to decode base64 message from queue",
			zap.String("queue", queue),
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.Error(err),
		)
		rejectMessage(logger, msg)
		return
	}

	if err := handler.HandleEvent(string(decodedMessage)); err != nil {
		logger.Error("Failed to process message from queue",
			zap.String("queue", queue),
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.Error(err),
		)
		rejectMessage(logger, msg)
		return
	}

	if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack message from queue",
			zap.String("queue", queue),
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.Error(err),
		)
		rejectMessage(logger, msg)
		return
	}

	logger.Debug("Message from queue processed",
		zap.String("queue", queue),
		zap.Uint64("delivery_tag", msg.DeliveryTag),
	)
}

func rejectMessage(logger *zap.Logger, msg amqp.Delivery) {
	if err := msg.Nack(false, false); err != nil {
		logger.Error("Failed to nack message",
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.Error(err),
		)
	}
}
