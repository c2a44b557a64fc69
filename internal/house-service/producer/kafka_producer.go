package producer

import (
	"context"

	"github.com/radieske/casino-house/internal/shared/kafka"
	"github.com/radieske/casino-house/pkg/contracts/events"
)

// Topics são os destinos de cada evento da house
type Topics struct {
	WagerCreated  string
	WagerResolved string
	FeesWithdrawn string
}

// KafkaPublisher publica os eventos da house; implementa house.Publisher
type KafkaPublisher struct {
	Writer *kafka.Writer
	Topics Topics
}

func NewKafkaPublisher(w *kafka.Writer, topics Topics) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topics: topics}
}

func (p *KafkaPublisher) PublishWagerCreated(ctx context.Context, e events.WagerCreated) error {
	return kafka.WriteJSON(ctx, p.Writer, p.Topics.WagerCreated, e.WagerID, e)
}

func (p *KafkaPublisher) PublishWagerResolved(ctx context.Context, e events.WagerResolved) error {
	return kafka.WriteJSON(ctx, p.Writer, p.Topics.WagerResolved, resolvedKey(e), e)
}

func (p *KafkaPublisher) PublishFeesWithdrawn(ctx context.Context, e events.FeesWithdrawn) error {
	return kafka.WriteJSON(ctx, p.Writer, p.Topics.FeesWithdrawn, e.Admin, e)
}

// resolvedKey: apostas one-shot não têm lock, então particionam pelo player
func resolvedKey(e events.WagerResolved) string {
	if e.WagerID != "" {
		return e.WagerID
	}
	return e.GameType + "|" + e.Player
}
