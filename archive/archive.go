package archive

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Metadata describes who took a document out of circulation and why.
type Metadata struct {
	ArchivedByUserId *string `bson:"archivedByUserId,omitempty"`
	Reason           *string `bson:"reason,omitempty"`
}

// Repository keeps snapshots of soft-disabled documents in a "<type>_archive" collection.
type Repository[T any] interface {
	Create(context.Context, T, Metadata) error
	Initialize(ctx context.Context, primaryKeyAttributes []string) error
}

func NewRepositoryFactory[T any](typ string, primaryKeyAttributes []string) func(db *mongo.Database, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) (Repository[T], error) {
	return func(db *mongo.Database, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) (Repository[T], error) {
		repo := newRepository[T](typ, db, logger)

		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return repo.Initialize(ctx, primaryKeyAttributes)
			},
		})

		return repo, nil
	}
}

func newRepository[T any](typ string, db *mongo.Database, logger *zap.SugaredLogger) *archiveRepository[T] {
	return &archiveRepository[T]{
		collection:   db.Collection(fmt.Sprintf("%s_archive", typ)),
		logger:       logger,
		documentType: typ,
	}
}

type archiveRepository[T any] struct {
	collection   *mongo.Collection
	logger       *zap.SugaredLogger
	documentType string
}

func (p *archiveRepository[T]) Initialize(ctx context.Context, primaryKeyAttributes []string) error {
	_, err := p.collection.Indexes().CreateMany(ctx, p.getIndexes(primaryKeyAttributes))
	return err
}

func (p *archiveRepository[T]) getIndexes(primaryKeyAttributes []string) []mongo.IndexModel {
	var primaryIndexKeys bson.D
	for _, attr := range primaryKeyAttributes {
		primaryIndexKeys = append(primaryIndexKeys, primitive.E{
			Key:   fmt.Sprintf("%s.%s", p.documentType, attr),
			Value: 1,
		})
	}

	return []mongo.IndexModel{
		{
			Keys:    primaryIndexKeys,
			Options: options.Index().SetName(fmt.Sprintf("%sArchive", cases.Title(language.English).String(p.documentType))),
		},
		{
			Keys:    append(bson.D{primitive.E{Key: "archivedTime", Value: 1}}, primaryIndexKeys...),
			Options: options.Index().SetName("ArchivedTime"),
		},
	}
}

func (p *archiveRepository[T]) Create(ctx context.Context, document T, meta Metadata) error {
	snapshot := bson.M{
		"archivedTime":  time.Now(),
		p.documentType: document,
	}
	if meta.ArchivedByUserId != nil {
		snapshot["archivedByUserId"] = *meta.ArchivedByUserId
	}
	if meta.Reason != nil {
		snapshot["reason"] = *meta.Reason
	}

	if _, err := p.collection.InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("error archiving document in collection %s: %w", p.collection.Name(), err)
	}
	p.logger.Debugw("archived document", "collection", p.collection.Name())
	return nil
}
