package readings

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
	readingsCollectionName = "readings"
)

//go:generate mockgen --build_flags=--mod=mod -source=./repo.go -destination=./test/mock_repository.go -package test MockRepository

// Repository gives bounded time window access to readings written by the ingestion pipeline.
type Repository interface {
	Get(ctx context.Context, id primitive.ObjectID) (*Reading, error)
	// List returns matching readings ordered by measured time ascending.
	List(ctx context.Context, filter *Filter) ([]*Reading, error)
	// Earliest returns the first matching reading or ErrNotFound.
	Earliest(ctx context.Context, filter *Filter) (*Reading, error)
	Span(ctx context.Context, filter *Filter) (*Span, error)
}

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		collection: db.Collection(readingsCollectionName),
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
				{Key: "patientId", Value: 1},
				{Key: "metricType", Value: 1},
				{Key: "measuredTime", Value: 1},
			},
			Options: options.Index().
				SetBackground(true).
				SetName("PatientMetricTime"),
		},
	})
	return err
}

func (r *repository) Get(ctx context.Context, id primitive.ObjectID) (*Reading, error) {
	reading := &Reading{}
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(reading)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return reading, nil
}

func (r *repository) List(ctx context.Context, filter *Filter) ([]*Reading, error) {
	opts := options.Find().SetSort(bson.D{{Key: "measuredTime", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, selector(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("error listing readings: %w", err)
	}

	readings := make([]*Reading, 0)
	if err = cursor.All(ctx, &readings); err != nil {
		return nil, fmt.Errorf("error decoding readings: %w", err)
	}
	return readings, nil
}

func (r *repository) Earliest(ctx context.Context, filter *Filter) (*Reading, error) {
	sel := selector(filter)
	sel["valueMain"] = bson.M{"$ne": nil}

	opts := options.FindOne().SetSort(bson.D{{Key: "measuredTime", Value: 1}, {Key: "_id", Value: 1}})
	reading := &Reading{}
	err := r.collection.FindOne(ctx, sel, opts).Decode(reading)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return reading, nil
}

func (r *repository) Span(ctx context.Context, filter *Filter) (*Span, error) {
	sel := selector(filter)
	sel["valueMain"] = bson.M{"$ne": nil}

	pipeline := []bson.M{
		{"$match": sel},
		{"$group": bson.M{
			"_id":   nil,
			"min":   bson.M{"$min": "$valueMain"},
			"max":   bson.M{"$max": "$valueMain"},
			"count": bson.M{"$sum": 1},
		}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating readings: %w", err)
	}

	var spans []Span
	if err = cursor.All(ctx, &spans); err != nil {
		return nil, fmt.Errorf("error decoding readings span: %w", err)
	}
	if len(spans) == 0 {
		return &Span{}, nil
	}
	return &spans[0], nil
}

func selector(filter *Filter) bson.M {
	sel := bson.M{
		"patientId":  filter.PatientId,
		"metricType": filter.MetricType,
		"isActive":   true,
	}

	measured := bson.M{}
	if filter.From != nil {
		measured["$gte"] = *filter.From
	}
	if filter.To != nil {
		measured["$lte"] = *filter.To
	}
	if len(measured) > 0 {
		sel["measuredTime"] = measured
	}
	if filter.ExcludeId != nil {
		sel["_id"] = bson.M{"$ne": *filter.ExcludeId}
	}
	return sel
}
