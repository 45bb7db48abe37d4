package patients

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

const (
	patientsCollectionName = "patients"
)

//go:generate mockgen --build_flags=--mod=mod -source=./repo.go -destination=./test/mock_repository.go -package test MockRepository

// Repository is a read-only view of patient profiles.
type Repository interface {
	Get(ctx context.Context, id primitive.ObjectID) (*Patient, error)
	List(ctx context.Context, filter *Filter) ([]*Patient, error)
}

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		collection: db.Collection(patientsCollectionName),
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Initialize(ctx)
		},
	})

	return repo, nil
}

type repository struct {
	collection *mongo.Collection
}

func (r *repository) Initialize(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "isActive", Value: 1},
				{Key: "doctorId", Value: 1},
			},
			Options: options.Index().
				SetBackground(true).
				SetName("ActiveByDoctor"),
		},
	})
	return err
}

func (r *repository) Get(ctx context.Context, id primitive.ObjectID) (*Patient, error) {
	patient := &Patient{}
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(patient)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return patient, nil
}

func (r *repository) List(ctx context.Context, filter *Filter) ([]*Patient, error) {
	selector := bson.M{}
	if filter != nil {
		if filter.Ids != nil {
			selector["_id"] = bson.M{"$in": filter.Ids}
		}
		if filter.DoctorIds != nil {
			selector["doctorId"] = bson.M{"$in": filter.DoctorIds}
		}
		if filter.ActiveOnly {
			selector["isActive"] = true
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing patients: %w", err)
	}

	patients := make([]*Patient, 0)
	if err = cursor.All(ctx, &patients); err != nil {
		return nil, fmt.Errorf("error decoding patients list: %w", err)
	}

	return patients, nil
}
