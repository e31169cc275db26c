package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/citycare-hospital/patient-backend/internal/model"
	"github.com/citycare-hospital/patient-backend/internal/patients"
	"github.com/citycare-hospital/patient-backend/libs/db"
)

const patientsCollection = "patients"

// PatientRepository stores appointment requests in a single MongoDB
// collection. Records are insert-only.
type PatientRepository struct {
	col *mongo.Collection
}

func NewPatientRepository(client *db.Client) *PatientRepository {
	return &PatientRepository{col: client.Collection(patientsCollection)}
}

// Create assigns CreatedAt and the document id, then inserts. The id is
// returned as its hex form, which is what the HTTP layer exposes.
func (r *PatientRepository) Create(ctx context.Context, p *model.Patient) (string, error) {
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now().UTC()
	if p.Gender == "" {
		p.Gender = model.GenderOther
	}

	if _, err := r.col.InsertOne(ctx, p); err != nil {
		return "", &patients.PersistenceError{Err: err}
	}
	return p.ID.Hex(), nil
}

func (r *PatientRepository) Get(ctx context.Context, id string) (model.Patient, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed id can never match a stored record.
		return model.Patient{}, patients.ErrNotFound
	}

	var p model.Patient
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Patient{}, patients.ErrNotFound
	}
	if err != nil {
		return model.Patient{}, &patients.PersistenceError{Err: err}
	}
	return p, nil
}

func (r *PatientRepository) List(ctx context.Context, limit int) ([]model.Patient, error) {
	if limit <= 0 || limit > patients.ListLimit {
		limit = patients.ListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &patients.PersistenceError{Err: err}
	}
	defer cursor.Close(ctx)

	out := []model.Patient{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, &patients.PersistenceError{Err: err}
	}
	return out, nil
}
