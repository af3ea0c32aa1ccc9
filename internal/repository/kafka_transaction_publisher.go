package repository

import (
	"context"
	"time"

	"CoinFolio/internal/domain/models"
	pkgkafka "CoinFolio/pkg/kafka"
	applogger "CoinFolio/pkg/logger"
)

// DefaultTransactionsTopic carries accepted ledger entries.
const DefaultTransactionsTopic = "coinfolio.transactions"

// KafkaTransactionPublisher emits accepted transactions to Kafka, keyed by
// symbol so per-symbol ordering is preserved downstream.
type KafkaTransactionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaTransactionPublisher(producer *pkgkafka.Producer, topic string, l *applogger.Logger) *KafkaTransactionPublisher {
	if topic == "" {
		topic = DefaultTransactionsTopic
	}
	return &KafkaTransactionPublisher{producer: producer, topic: topic, l: l}
}

type transactionEvent struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Symbol    string  `json:"symbol"`
	Type      string  `json:"type"`
	Date      string  `json:"date"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	EmittedAt string  `json:"emitted_at"`
}

// Publish sends one accepted transaction. Callers treat failures as
// best-effort; the ledger entry is already accepted.
func (p *KafkaTransactionPublisher) Publish(ctx context.Context, t *models.Transaction) error {
	ev := transactionEvent{
		ID:        t.ID,
		UserID:    t.UserID,
		Symbol:    t.Symbol,
		Type:      string(t.Type),
		Date:      t.Date.Format("2006-01-02"),
		Price:     t.Price,
		Quantity:  t.Quantity,
		EmittedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(t.Symbol), ev); err != nil {
		if p.l != nil {
			p.l.Warn("kafka transaction publish failed",
				applogger.String("topic", p.topic),
				applogger.String("txn_id", t.ID),
				applogger.Error(err),
			)
		}
		return err
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaTransactionPublisher) Close() error {
	return p.producer.Close()
}
