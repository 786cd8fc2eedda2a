package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/consumer"
	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/rabbitmq"
	"github.com/hirelens/ats-sync-svc/internal/store"
)

// Consumer drains the result queue and applies enrichment outcomes to
// the queue row and the candidate record.
type Consumer struct {
	conn        *rabbitmq.Connection
	candidates  store.CandidateStore
	enrichments store.EnrichmentStore
	resultQueue string
	prefetch    int
	logger      *zap.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	consumerTag string
	started     bool
}

func NewConsumer(conn *rabbitmq.Connection, st store.Store, resultQueue string, prefetch int, logger *zap.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		conn:        conn,
		candidates:  st.Candidates(),
		enrichments: st.Enrichments(),
		resultQueue: resultQueue,
		prefetch:    prefetch,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		consumerTag: fmt.Sprintf("enrichment-results-%d", time.Now().Unix()),
	}
}

// Start declares the result queue and begins consuming.
func (c *Consumer) Start() error {
	if c.resultQueue == "" {
		return fmt.Errorf("result queue is required")
	}

	if err := c.conn.DeclareQueue(c.resultQueue); err != nil {
		return fmt.Errorf("failed to declare result queue: %w", err)
	}

	if err := c.startConsuming(); err != nil {
		return err
	}

	c.started = true
	c.logger.Info("Enrichment result consumer started",
		zap.String("result_queue", c.resultQueue),
		zap.String("consumer_tag", c.consumerTag),
		zap.Int("prefetch_count", c.prefetch),
	)
	return nil
}

func (c *Consumer) startConsuming() error {
	if err := c.conn.SetQoS(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	messages, err := c.conn.ConsumeMessages(c.resultQueue, c.consumerTag, false)
	if err != nil {
		return fmt.Errorf("failed to start consuming from queue %s: %w", c.resultQueue, err)
	}

	go c.processMessages(messages)

	return nil
}

// Stop cancels the consumer and stops the processing goroutine.
func (c *Consumer) Stop() {
	c.logger.Info("Stopping enrichment result consumer",
		zap.String("consumer_tag", c.consumerTag),
	)
	c.started = false
	c.cancel()

	if err := c.conn.CancelConsumer(c.consumerTag); err != nil {
		c.logger.Error("Failed to cancel consumer",
			zap.String("consumer_tag", c.consumerTag),
			zap.Error(err),
		)
	}
}

func (c *Consumer) processMessages(messages <-chan amqp.Delivery) {
	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("Consumer context cancelled, stopping message processing")
			return
		case msg, ok := <-messages:
			if !ok {
				c.logger.Warn("Message channel closed, attempting to restart consumer...",
					zap.String("result_queue", c.resultQueue),
				)
				// The shared connection reconnects on its own; keep
				// retrying until a fresh consumer registers.
				for c.started {
					select {
					case <-c.ctx.Done():
						return
					default:
					}

					time.Sleep(2 * time.Second)

					if !c.conn.IsHealthy() {
						continue
					}
					if err := c.startConsuming(); err != nil {
						c.logger.Error("Failed to restart consumer after channel close, will retry",
							zap.String("result_queue", c.resultQueue),
							zap.Error(err),
						)
						time.Sleep(5 * time.Second)
						continue
					}

					c.logger.Info("Restarted consumer after channel close",
						zap.String("result_queue", c.resultQueue),
					)
					return
				}
				return
			}
			consumer.ProcessMessage(c.logger, c.resultQueue, msg, c)
		}
	}
}

// HandleEvent implements consumer.EventHandler. The decoded message is
// an enrichment result; a missing candidate means it was deleted while
// the task was in flight, which drops the result without error.
func (c *Consumer) HandleEvent(decodedMessage string) error {
	var result ResultMessage
	if err := json.Unmarshal([]byte(decodedMessage), &result); err != nil {
		return fmt.Errorf("failed to unmarshal result message: %w", err)
	}
	if result.CandidateID == uuid.Nil {
		return fmt.Errorf("result message has no candidate id")
	}

	switch result.Status {
	case ResultStatusCompleted, ResultStatusFailed:
	default:
		return fmt.Errorf("unknown result status %q", result.Status)
	}

	ctx, cancelFn := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancelFn()

	taskStatus := models.TaskStatusCompleted
	var taskErr *string
	if result.Status == ResultStatusFailed {
		taskStatus = models.TaskStatusFailed
		if result.Error != "" {
			taskErr = &result.Error
		}
	}

	if err := c.enrichments.UpdateResult(ctx, result.CandidateID, taskStatus, taskErr); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("Enrichment result for unknown task, dropping",
				zap.String("candidate_id", result.CandidateID.String()),
			)
			return nil
		}
		return fmt.Errorf("failed to update enrichment task: %w", err)
	}

	enriched := models.AIEnrichment{Status: models.EnrichmentCompleted}
	if result.Status == ResultStatusFailed {
		enriched = models.AIEnrichment{
			Status: models.EnrichmentFailed,
			Error:  result.Error,
		}
	} else {
		completedAt := result.CompletedAt
		if completedAt.IsZero() {
			completedAt = time.Now().UTC()
		}
		enriched.EnrichedAt = &completedAt
		enriched.Summary = result.Summary
		enriched.Tags = result.Tags
	}

	if err := c.candidates.SetEnrichment(ctx, result.CandidateID, enriched); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("Enrichment result for deleted candidate, dropping",
				zap.String("candidate_id", result.CandidateID.String()),
			)
			return nil
		}
		return fmt.Errorf("failed to store candidate enrichment: %w", err)
	}

	c.logger.Info("Enrichment result applied",
		zap.String("tenant_id", result.TenantID.String()),
		zap.String("candidate_id", result.CandidateID.String()),
		zap.String("status", result.Status),
	)
	return nil
}
