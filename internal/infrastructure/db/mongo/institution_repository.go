package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gctu/certificate-registry/internal/core/domain"
)

const institutionsCollection = "institutions"

// InstitutionRepository implements ports.InstitutionRepository using MongoDB.
type InstitutionRepository struct {
	coll *mongo.Collection
}

func NewInstitutionRepository(db *mongo.Database) *InstitutionRepository {
	return &InstitutionRepository{coll: db.Collection(institutionsCollection)}
}

type institutionDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	AdminID   string             `bson:"admin_id"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d *institutionDoc) toDomain() *domain.Institution {
	return &domain.Institution{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		AdminID:   d.AdminID,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (r *InstitutionRepository) Create(ctx context.Context, inst *domain.Institution) (*domain.Institution, error) {
	doc := institutionDoc{
		Name:      inst.Name,
		AdminID:   inst.AdminID,
		Status:    inst.Status,
		CreatedAt: inst.CreatedAt,
		UpdatedAt: inst.UpdatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert institution: %w", err)
	}

	created := *inst
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *InstitutionRepository) FindByID(ctx context.Context, id string) (*domain.Institution, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInstitutionNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *InstitutionRepository) FindByAdmin(ctx context.Context, adminID string) (*domain.Institution, error) {
	return r.findOne(ctx, bson.M{"admin_id": adminID})
}

func (r *InstitutionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Institution, error) {
	var doc institutionDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("find institution: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes enforces the one-institution-per-admin invariant.
func (r *InstitutionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "admin_id", Value: 1}},
		Options: uniqueIndex(),
	})
	return err
}
