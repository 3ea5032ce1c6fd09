package kafkaconsumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

type messageProcessor func(context.Context, *sarama.ConsumerMessage) error

// groupHandler drives one consumer group session. Offsets are marked only
// after the purge for that message succeeded, so a failed purge is
// redelivered after the next rebalance.
type groupHandler struct {
	process messageProcessor
	logger  *slog.Logger
}

func (c *Consumer) handler() *groupHandler {
	return &groupHandler{process: c.ProcessOne, logger: c.logger}
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger.InfoContext(sess.Context(), "catalog partitions assigned",
		"member", sess.MemberID(), "generation", sess.GenerationID(), "claims", sess.Claims())
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	h.logger.DebugContext(sess.Context(), "catalog partitions released", "generation", sess.GenerationID())
	return nil
}

// ConsumeClaim returns nil when the session ends; only a failed purge ends
// the claim with an error.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	applied := 0
	defer func() {
		h.logger.DebugContext(ctx, "catalog claim finished",
			"partition", claim.Partition(), "initial_offset", claim.InitialOffset(), "applied", applied)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(ctx, msg); err != nil {
				return fmt.Errorf("catalog event not applied (partition=%d, offset=%d): %w",
					msg.Partition, msg.Offset, err)
			}
			sess.MarkMessage(msg, "")
			applied++
		}
	}
}
