package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/store"
)

const (
	alertsCollectionName = "alerts"
	upsertAttempts       = 2
)

type Repository interface {
	// Upsert inserts candidate unless an open alert with the same patient, event type and dedup
	// key exists, in which case that alert is escalated in place. The operation is atomic per
	// dedup key.
	Upsert(ctx context.Context, candidate Alert) (*UpsertResult, error)
	Create(ctx context.Context, alert Alert) (*Alert, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Alert, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, update StatusUpdate) (*Alert, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) (*Alert, error)
	List(ctx context.Context, filter *Filter, pagination store.Pagination, sorts []*store.Sort) (*ListResult, error)
	Count(ctx context.Context, filter *Filter) (int, error)
}

func NewRepository(db *mongo.Database, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		collection: db.Collection(alertsCollectionName),
		logger:     logger,
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
	logger     *zap.SugaredLogger
}

func (r *repository) Initialize(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "patientId", Value: 1},
				{Key: "eventType", Value: 1},
				{Key: "dedupKey", Value: 1},
			},
			Options: options.Index().
				SetBackground(true).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}).
				SetName("UniqueOpenAlert"),
		},
		{
			Keys: bson.D{
				{Key: "doctorId", Value: 1},
				{Key: "status", Value: 1},
				{Key: "eventTime", Value: -1},
			},
			Options: options.Index().
				SetBackground(true).
				SetName("DoctorTodos"),
		},
		{
			Keys: bson.D{
				{Key: "patientId", Value: 1},
				{Key: "eventTime", Value: -1},
			},
			Options: options.Index().
				SetBackground(true).
				SetName("PatientTimeline"),
		},
	})
	return err
}

func (r *repository) Upsert(ctx context.Context, candidate Alert) (*UpsertResult, error) {
	var err error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		var result *UpsertResult
		result, err = r.upsert(ctx, candidate)
		if err == nil {
			return result, nil
		}
		// A concurrent evaluation inserted the alert first. The retry matches it.
		if !store.IsDuplicateKeyError(err) {
			break
		}
		r.logger.Debugw("retrying alert upsert after concurrent insert", "patientId", candidate.PatientId.Hex(), "dedupKey", candidate.DedupKey)
	}
	return nil, fmt.Errorf("error upserting alert: %w", err)
}

func (r *repository) upsert(ctx context.Context, candidate Alert) (*UpsertResult, error) {
	selector := bson.M{
		"patientId": candidate.PatientId,
		"eventType": candidate.EventType,
		"dedupKey":  candidate.DedupKey,
		"open":      true,
	}

	update := bson.M{
		"$max": bson.M{
			"level":     candidate.Level,
			"eventTime": candidate.EventTime,
		},
		"$set": bson.M{
			"title":         candidate.Title,
			"content":       candidate.Content,
			"sourceType":    candidate.SourceType,
			"sourceId":      candidate.SourceId,
			"sourcePayload": candidate.SourcePayload,
			"updatedTime":   candidate.UpdatedTime,
		},
		"$setOnInsert": bson.M{
			"_id":           candidate.Id,
			"doctorId":      candidate.DoctorId,
			"status":        StatusPending,
			"isActive":      true,
			"handleContent": "",
			"createdTime":   candidate.CreatedTime,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	existing := Alert{}
	err := r.collection.FindOneAndUpdate(ctx, selector, update, opts).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		created := candidate
		created.Status = StatusPending
		created.IsActive = true
		created.Open = true
		return &UpsertResult{Alert: &created, Outcome: OutcomeCreated}, nil
	} else if err != nil {
		return nil, err
	}

	merged, outcome := Merge(existing, candidate)
	return &UpsertResult{Alert: &merged, Previous: &existing, Outcome: outcome}, nil
}

func (r *repository) Create(ctx context.Context, alert Alert) (*Alert, error) {
	if alert.Id.IsZero() {
		alert.Id = primitive.NewObjectID()
	}
	// Plain inserts never take part in deduplication.
	alert.DedupKey = "id=" + alert.Id.Hex()
	alert.Open = alert.IsOpen()

	if _, err := r.collection.InsertOne(ctx, alert); err != nil {
		return nil, fmt.Errorf("error creating alert: %w", err)
	}
	return &alert, nil
}

func (r *repository) Get(ctx context.Context, id primitive.ObjectID) (*Alert, error) {
	alert := &Alert{}
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(alert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return alert, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id primitive.ObjectID, update StatusUpdate) (*Alert, error) {
	set := bson.M{
		"status":      update.Status,
		"updatedTime": time.Now(),
	}
	if update.HandleTime != nil {
		set["handleTime"] = *update.HandleTime
	}
	if update.HandlerId != nil {
		set["handlerId"] = bson.M{"$literal": *update.HandlerId}
	}
	if update.HandleContent != nil {
		set["handleContent"] = bson.M{"$literal": *update.HandleContent}
	}

	// open is derived from isActive and the new status inside the update
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: set}},
		{{Key: "$set", Value: bson.M{
			"open": bson.M{"$and": bson.A{
				"$isActive",
				bson.M{"$in": bson.A{"$status", OpenStatuses.ToSlice()}},
			}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	alert := &Alert{}
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(alert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if store.IsDuplicateKeyError(err) {
		return nil, ErrReopenConflict
	} else if err != nil {
		return nil, fmt.Errorf("error updating alert status: %w", err)
	}
	return alert, nil
}

func (r *repository) Deactivate(ctx context.Context, id primitive.ObjectID) (*Alert, error) {
	update := bson.M{
		"$set": bson.M{
			"isActive":    false,
			"open":        false,
			"updatedTime": time.Now(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	alert := &Alert{}
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(alert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error deactivating alert: %w", err)
	}
	return alert, nil
}

func (r *repository) List(ctx context.Context, filter *Filter, pagination store.Pagination, sorts []*store.Sort) (*ListResult, error) {
	pipeline := []bson.M{
		{"$match": generateListFilterQuery(filter)},
		{"$sort": generateListSortStage(sorts)},
	}
	pipeline = append(pipeline, store.PaginationFacetStages(pagination)...)

	r.logger.Debugw("retrieving list of alerts", "pipeline", pipeline)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	if !cursor.Next(ctx) {
		return nil, fmt.Errorf("error getting pipeline result")
	}

	var result ListResult
	if err = cursor.Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding alerts list: %w", err)
	}
	if result.TotalCount == 0 {
		result.Alerts = make([]*Alert, 0)
	}
	return &result, nil
}

func (r *repository) Count(ctx context.Context, filter *Filter) (int, error) {
	count, err := r.collection.CountDocuments(ctx, generateListFilterQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("error counting alerts: %w", err)
	}
	return int(count), nil
}

func generateListFilterQuery(filter *Filter) bson.M {
	selector := bson.M{}
	if filter == nil {
		selector["isActive"] = true
		return selector
	}

	if !filter.IncludeInactive {
		selector["isActive"] = true
	}
	if filter.PatientId != nil {
		selector["patientId"] = *filter.PatientId
	}
	if filter.DoctorIds != nil {
		selector["doctorId"] = bson.M{"$in": filter.DoctorIds}
	}
	if len(filter.EventTypes) > 0 {
		selector["eventType"] = bson.M{"$in": filter.EventTypes}
	}
	if len(filter.Levels) > 0 {
		selector["level"] = bson.M{"$in": filter.Levels}
	}
	if len(filter.Statuses) > 0 {
		selector["status"] = bson.M{"$in": filter.Statuses}
	}

	eventTime := bson.M{}
	if filter.EventTimeFrom != nil {
		eventTime["$gte"] = *filter.EventTimeFrom
	}
	if filter.EventTimeTo != nil {
		eventTime["$lt"] = *filter.EventTimeTo
	}
	if len(eventTime) > 0 {
		selector["eventTime"] = eventTime
	}

	if filter.SourceType != nil {
		selector["sourceType"] = *filter.SourceType
	}
	if filter.PayloadMetricType != nil {
		selector["sourcePayload.metricType"] = *filter.PayloadMetricType
	}
	if filter.PayloadQuestionnaireCode != nil {
		selector["sourcePayload.questionnaireCode"] = *filter.PayloadQuestionnaireCode
	}
	return selector
}

func generateListSortStage(sorts []*store.Sort) bson.D {
	var s bson.D
	for _, sort := range sorts {
		if sort != nil {
			s = append(s, bson.E{Key: sort.Attribute, Value: sort.Order()})
		}
	}

	if len(s) == 0 {
		s = append(s, bson.E{Key: "eventTime", Value: -1})
	}
	s = append(s, bson.E{Key: "_id", Value: -1})

	return s
}
