package tasks

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
	tasksCollectionName     = "daily_tasks"
	templatesCollectionName = "monitoring_templates"
)

//go:generate mockgen --build_flags=--mod=mod -source=./repo.go -destination=./test/mock_repository.go -package test MockRepository

type Repository interface {
	// PendingCountsByDate returns the number of pending tasks per scheduled day. Days without
	// any pending task are absent from the result.
	PendingCountsByDate(ctx context.Context, filter *PendingFilter) (map[string]int, error)
	// ListOverdue returns pending tasks of the given categories scheduled on or before the day.
	ListOverdue(ctx context.Context, patientId primitive.ObjectID, categories []Category, onOrBefore string) ([]*Task, error)
	// ListMonitoringTemplates returns active templates whose code is one of codes.
	ListMonitoringTemplates(ctx context.Context, codes []string) ([]*MonitoringTemplate, error)
}

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		tasks:     db.Collection(tasksCollectionName),
		templates: db.Collection(templatesCollectionName),
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Initialize(ctx)
		},
	})

	return repo, nil
}

type repository struct {
	tasks     *mongo.Collection
	templates *mongo.Collection
}

func (r *repository) Initialize(ctx context.Context) error {
	_, err := r.tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "patientId", Value: 1},
				{Key: "category", Value: 1},
				{Key: "status", Value: 1},
				{Key: "taskDate", Value: 1},
			},
			Options: options.Index().
				SetBackground(true).
				SetName("PatientCategoryStatusDate"),
		},
	})
	if err != nil {
		return err
	}

	_, err = r.templates.Indexes().CreateOne(ctx, mongo.IndexModel{
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

func (r *repository) PendingCountsByDate(ctx context.Context, filter *PendingFilter) (map[string]int, error) {
	match := bson.M{
		"patientId": filter.PatientId,
		"category":  filter.Category,
		"status":    StatusPending,
		"taskDate":  bson.M{"$gte": filter.From, "$lte": filter.To},
	}
	if filter.TemplateId != nil {
		match["templateId"] = *filter.TemplateId
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": "$taskDate", "count": bson.M{"$sum": 1}}},
	}
	cursor, err := r.tasks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error counting pending tasks: %w", err)
	}

	var rows []struct {
		Date  string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding pending task counts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Date] = row.Count
	}
	return counts, nil
}

func (r *repository) ListOverdue(ctx context.Context, patientId primitive.ObjectID, categories []Category, onOrBefore string) ([]*Task, error) {
	selector := bson.M{
		"patientId": patientId,
		"category":  bson.M{"$in": categories},
		"status":    StatusPending,
		"taskDate":  bson.M{"$lte": onOrBefore},
	}
	opts := options.Find().SetSort(bson.D{{Key: "taskDate", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.tasks.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing overdue tasks: %w", err)
	}

	tasks := make([]*Task, 0)
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("error decoding overdue tasks: %w", err)
	}
	return tasks, nil
}

func (r *repository) ListMonitoringTemplates(ctx context.Context, codes []string) ([]*MonitoringTemplate, error) {
	selector := bson.M{
		"isActive": true,
		"code":     bson.M{"$in": codes},
	}
	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}})
	cursor, err := r.templates.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing monitoring templates: %w", err)
	}

	templates := make([]*MonitoringTemplate, 0)
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("error decoding monitoring templates: %w", err)
	}
	return templates, nil
}
