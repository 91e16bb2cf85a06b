package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gctu/certificate-registry/internal/core/domain"
)

const auditCollection = "audit_logs"

// AuditRepository persists append-only audit entries. Entries reference users
// by weak id only, so they survive user deletion; there is no update or
// delete operation by design.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type auditDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Action    string             `bson:"action"`
	UserID    *string            `bson:"user_id"`
	Timestamp time.Time          `bson:"timestamp"`
	Details   string             `bson:"details"`
}

func (r *AuditRepository) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	doc := auditDoc{
		Action:    entry.Action,
		UserID:    entry.UserID,
		Timestamp: ts,
		Details:   entry.Details,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries attributed to the given user or to no
// user at all (anonymous public verification), newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*domain.AuditEntry, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"user_id": userID},
		bson.M{"user_id": nil},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.AuditEntry
	for cursor.Next(ctx) {
		var doc auditDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, &domain.AuditEntry{
			ID:        doc.ID.Hex(),
			Action:    doc.Action,
			UserID:    doc.UserID,
			Timestamp: doc.Timestamp,
			Details:   doc.Details,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// EnsureIndexes creates the timestamp index used by recent-entry listings.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})
	return err
}
