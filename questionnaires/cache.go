package questionnaires

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
)

const definitionsCacheSize = 256

// CachingRepository keeps questionnaire definitions in memory. Definitions are reference data
// that only change with a deployment, submissions are always read through.
type CachingRepository struct {
	Repository

	cache *lru.Cache
	mu    sync.Mutex
}

func NewCachingRepository(repository Repository) (*CachingRepository, error) {
	cache, err := lru.New(definitionsCacheSize)
	if err != nil {
		return nil, err
	}
	return &CachingRepository{
		Repository: repository,
		cache:      cache,
	}, nil
}

// NewCachedRepository provides the mongo repository behind a definitions cache.
func NewCachedRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repository, err := NewRepository(db, lifecycle)
	if err != nil {
		return nil, err
	}
	return NewCachingRepository(repository)
}

func (c *CachingRepository) Get(ctx context.Context, id primitive.ObjectID) (*Questionnaire, error) {
	if cached, ok := c.cache.Get(id); ok {
		return cached.(*Questionnaire), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache.Get(id); ok {
		return cached.(*Questionnaire), nil
	}

	questionnaire, err := c.Repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, questionnaire)
	return questionnaire, nil
}
