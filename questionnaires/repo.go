package questionnaires

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

const (
	questionnairesCollectionName = "questionnaires"
	submissionsCollectionName    = "questionnaire_submissions"
)

//go:generate mockgen --build_flags=--mod=mod -source=./repo.go -destination=./test/mock_repository.go -package test MockRepository

type Repository interface {
	Get(ctx context.Context, id primitive.ObjectID) (*Questionnaire, error)
	GetSubmission(ctx context.Context, id primitive.ObjectID) (*Submission, error)
}

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		questionnaires: db.Collection(questionnairesCollectionName),
		submissions:    db.Collection(submissionsCollectionName),
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Initialize(ctx)
		},
	})

	return repo, nil
}

type repository struct {
	questionnaires *mongo.Collection
	submissions    *mongo.Collection
}

func (r *repository) Initialize(ctx context.Context) error {
	_, err := r.questionnaires.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "code", Value: 1},
		},
		Options: options.Index().
			SetBackground(true).
			SetUnique(true).
			SetName("UniqueCode"),
	})
	return err
}

func (r *repository) Get(ctx context.Context, id primitive.ObjectID) (*Questionnaire, error) {
	questionnaire := &Questionnaire{}
	err := r.questionnaires.FindOne(ctx, bson.M{"_id": id}).Decode(questionnaire)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return questionnaire, nil
}

func (r *repository) GetSubmission(ctx context.Context, id primitive.ObjectID) (*Submission, error) {
	submission := &Submission{}
	err := r.submissions.FindOne(ctx, bson.M{"_id": id}).Decode(submission)
	if err == mongo.ErrNoDocuments {
		return nil, ErrSubmissionNotFound
	} else if err != nil {
		return nil, err
	}
	return submission, nil
}
