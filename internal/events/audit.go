package events

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

const auditCollection = "audit_logs"

// AuditRecord is the document stored for every published event.
type AuditRecord struct {
	ID            string    `bson:"_id"`
	Type          string    `bson:"type"`
	UserID        string    `bson:"user_id"`
	TransactionID string    `bson:"transaction_id,omitempty"`
	Amount        string    `bson:"amount"`
	Balance       string    `bson:"balance"`
	Reference     string    `bson:"reference,omitempty"`
	OccurredAt    time.Time `bson:"occurred_at"`
	RecordedAt    time.Time `bson:"recorded_at"`
}

type DocumentWriter interface {
	Insert(ctx context.Context, doc any) error
}

type collectionWriter struct {
	collection *mongo.Collection
}

func (w collectionWriter) Insert(ctx context.Context, doc any) error {
	_, err := w.collection.InsertOne(ctx, doc)
	return err
}

type AuditSink struct {
	writer DocumentWriter
	now    func() time.Time
}

func NewAuditSink(writer DocumentWriter) *AuditSink {
	return &AuditSink{writer: writer, now: time.Now}
}

func NewMongoAuditSink(client *mongo.Client, dbName string) *AuditSink {
	return NewAuditSink(collectionWriter{collection: client.Database(dbName).Collection(auditCollection)})
}

func (s *AuditSink) Publish(ctx context.Context, event Event) error {
	record := AuditRecord{
		ID:            event.ID,
		Type:          event.Type,
		UserID:        event.UserID,
		TransactionID: event.TransactionID,
		Amount:        event.Amount.StringFixed(2),
		Balance:       event.Balance.StringFixed(2),
		Reference:     event.Reference,
		OccurredAt:    event.OccurredAt,
		RecordedAt:    s.now(),
	}
	if err := s.writer.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
