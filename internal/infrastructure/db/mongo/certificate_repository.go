package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gctu/certificate-registry/internal/core/domain"
)

const certificatesCollection = "certificates"

// CertificateRepository implements ports.CertificateRepository using MongoDB.
// The unique index on certificate_hash is the authoritative duplicate guard:
// a racing insert surfaces as a duplicate-key error and is reported as
// domain.ErrDuplicateFingerprint, never as a generic failure.
type CertificateRepository struct {
	coll *mongo.Collection
}

func NewCertificateRepository(db *mongo.Database) *CertificateRepository {
	return &CertificateRepository{coll: db.Collection(certificatesCollection)}
}

type certificateDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Hash          string             `bson:"certificate_hash"`
	StudentID     string             `bson:"student_id"`
	InstitutionID string             `bson:"institution_id"`
	Title         string             `bson:"title"`
	Description   string             `bson:"description,omitempty"`
	IssueDate     time.Time          `bson:"issue_date"`
	ExpiryDate    *time.Time         `bson:"expiry_date,omitempty"`
	Status        string             `bson:"status"`
	AnchorTxRef   string             `bson:"blockchain_tx_hash,omitempty"`
	FileRef       string             `bson:"file_path"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func (d *certificateDoc) toDomain() *domain.Certificate {
	return &domain.Certificate{
		ID:            d.ID.Hex(),
		Hash:          d.Hash,
		StudentID:     d.StudentID,
		InstitutionID: d.InstitutionID,
		Title:         d.Title,
		Description:   d.Description,
		IssueDate:     d.IssueDate,
		ExpiryDate:    d.ExpiryDate,
		Status:        domain.CertificateStatus(d.Status),
		AnchorTxRef:   d.AnchorTxRef,
		FileRef:       d.FileRef,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (r *CertificateRepository) Create(ctx context.Context, cert *domain.Certificate) (string, error) {
	doc := certificateDoc{
		Hash:          cert.Hash,
		StudentID:     cert.StudentID,
		InstitutionID: cert.InstitutionID,
		Title:         cert.Title,
		Description:   cert.Description,
		IssueDate:     cert.IssueDate,
		ExpiryDate:    cert.ExpiryDate,
		Status:        string(cert.Status),
		AnchorTxRef:   cert.AnchorTxRef,
		FileRef:       cert.FileRef,
		CreatedAt:     cert.CreatedAt,
		UpdatedAt:     cert.UpdatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", domain.ErrDuplicateFingerprint
		}
		return "", fmt.Errorf("insert certificate: %w", err)
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*domain.Certificate, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrCertificateNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *CertificateRepository) FindByHash(ctx context.Context, hash string) (*domain.Certificate, error) {
	return r.findOne(ctx, bson.M{"certificate_hash": hash})
}

func (r *CertificateRepository) ListByStudent(ctx context.Context, studentID string) ([]*domain.Certificate, error) {
	return r.list(ctx, bson.M{"student_id": studentID})
}

func (r *CertificateRepository) ListByInstitution(ctx context.Context, institutionID string) ([]*domain.Certificate, error) {
	return r.list(ctx, bson.M{"institution_id": institutionID})
}

// TransitionStatus conditionally moves the certificate from one status to
// another. A lost race (current status no longer matches) reports false so
// callers can treat convergent transitions as benign.
func (r *CertificateRepository) TransitionStatus(ctx context.Context, id string, from, to domain.CertificateStatus) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, domain.ErrCertificateNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *CertificateRepository) Revoke(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, domain.ErrCertificateNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": bson.M{"$ne": string(domain.StatusRevoked)}},
		bson.M{"$set": bson.M{"status": string(domain.StatusRevoked), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("revoke certificate: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *CertificateRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrCertificateNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCertificateNotFound
	}
	return nil
}

func (r *CertificateRepository) findOne(ctx context.Context, filter bson.M) (*domain.Certificate, error) {
	var doc certificateDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CertificateRepository) list(ctx context.Context, filter bson.M) ([]*domain.Certificate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer cursor.Close(ctx)

	var certs []*domain.Certificate
	for cursor.Next(ctx) {
		var doc certificateDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode certificate: %w", err)
		}
		certs = append(certs, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// EnsureIndexes creates the fingerprint uniqueness guard and the scoped
// listing indexes.
func (r *CertificateRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "certificate_hash", Value: 1}}, Options: uniqueIndex()},
		{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "institution_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func uniqueIndex() *options.IndexOptions {
	return options.Index().SetUnique(true)
}
