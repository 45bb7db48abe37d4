package alerts

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/archive"
	"github.com/lungcare/clinic/outbox"
	"github.com/lungcare/clinic/patients"
	"github.com/lungcare/clinic/store"
)

// NewArchiveRepository provides the collection keeping snapshots of deactivated alerts.
var NewArchiveRepository = archive.NewRepositoryFactory[Alert]("alert", []string{"_id", "patientId"})

//go:generate mockgen --build_flags=--mod=mod -source=./service.go -destination=./test/mock_service.go -package test MockService

type Service interface {
	// Submit creates an alert or escalates the open alert with the same cause.
	Submit(ctx context.Context, submission Submission) (*Alert, error)
	// Create inserts an alert without deduplication.
	Create(ctx context.Context, submission Submission) (*Alert, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Alert, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, update StatusUpdate) (*Alert, error)
	Deactivate(ctx context.Context, id primitive.ObjectID, metadata archive.Metadata) (*Alert, error)
	List(ctx context.Context, filter *Filter, pagination store.Pagination, sorts []*store.Sort) (*ListResult, error)
	Count(ctx context.Context, filter *Filter) (int, error)
}

type Params struct {
	fx.In

	Repository Repository
	Patients   patients.Repository
	Outbox     outbox.Repository
	Archive    archive.Repository[Alert]
	Logger     *zap.SugaredLogger
}

func NewService(p Params) (Service, error) {
	return &service{
		repository: p.Repository,
		patients:   p.Patients,
		outbox:     p.Outbox,
		archive:    p.Archive,
		logger:     p.Logger,
		now:        time.Now,
	}, nil
}

type service struct {
	repository Repository
	patients   patients.Repository
	outbox     outbox.Repository
	archive    archive.Repository[Alert]
	logger     *zap.SugaredLogger
	now        func() time.Time
}

var _ Service = &service{}

func (s *service) Submit(ctx context.Context, submission Submission) (*Alert, error) {
	candidate, err := s.prepare(ctx, submission)
	if err != nil {
		return nil, err
	}

	result, err := s.repository.Upsert(ctx, *candidate)
	if err != nil {
		return nil, err
	}

	alert := result.Alert
	submissionsTotal.WithLabelValues(string(alert.EventType), string(result.Outcome)).Inc()
	s.logger.Infow("alert submitted",
		"alertId", alert.Id.Hex(),
		"patientId", alert.PatientId.Hex(),
		"eventType", alert.EventType,
		"level", alert.Level,
		"sourceType", alert.SourceType,
		"outcome", result.Outcome,
	)

	switch result.Outcome {
	case OutcomeCreated:
		s.publish(ctx, outbox.EventTypeAlertCreated, alert, 0)
	case OutcomeEscalated:
		s.publish(ctx, outbox.EventTypeAlertEscalated, alert, result.Previous.Level)
	}

	return alert, nil
}

func (s *service) Create(ctx context.Context, submission Submission) (*Alert, error) {
	candidate, err := s.prepare(ctx, submission)
	if err != nil {
		return nil, err
	}

	alert, err := s.repository.Create(ctx, *candidate)
	if err != nil {
		return nil, err
	}

	submissionsTotal.WithLabelValues(string(alert.EventType), string(OutcomeCreated)).Inc()
	s.logger.Infow("alert created", "alertId", alert.Id.Hex(), "patientId", alert.PatientId.Hex(), "eventType", alert.EventType)
	s.publish(ctx, outbox.EventTypeAlertCreated, alert, 0)

	return alert, nil
}

func (s *service) Get(ctx context.Context, id primitive.ObjectID) (*Alert, error) {
	return s.repository.Get(ctx, id)
}

func (s *service) UpdateStatus(ctx context.Context, id primitive.ObjectID, update StatusUpdate) (*Alert, error) {
	if !update.Status.Valid() {
		return nil, fmt.Errorf("%w %d", ErrInvalidStatus, update.Status)
	}
	if update.HandleTime == nil {
		now := s.now()
		update.HandleTime = &now
	}

	alert, err := s.repository.UpdateStatus(ctx, id, update)
	if err != nil {
		return nil, err
	}

	statusUpdatesTotal.WithLabelValues(update.Status.Code()).Inc()
	s.logger.Infow("alert status updated", "alertId", id.Hex(), "status", update.Status.Code())
	return alert, nil
}

func (s *service) Deactivate(ctx context.Context, id primitive.ObjectID, metadata archive.Metadata) (*Alert, error) {
	alert, err := s.repository.Deactivate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.archive.Create(ctx, *alert, metadata); err != nil {
		s.logger.Errorw("unable to archive deactivated alert", "alertId", id.Hex(), "error", err)
	}
	s.logger.Infow("alert deactivated", "alertId", id.Hex())
	return alert, nil
}

func (s *service) List(ctx context.Context, filter *Filter, pagination store.Pagination, sorts []*store.Sort) (*ListResult, error) {
	return s.repository.List(ctx, filter, pagination, sorts)
}

func (s *service) Count(ctx context.Context, filter *Filter) (int, error) {
	return s.repository.Count(ctx, filter)
}

// prepare validates the submission and resolves the patient's attending doctor.
func (s *service) prepare(ctx context.Context, submission Submission) (*Alert, error) {
	if err := submission.Validate(); err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, submission.PatientId)
	if err != nil {
		return nil, err
	}
	if submission.DoctorId == nil {
		submission.DoctorId = patient.DoctorId
	}

	candidate := NewAlert(submission, s.now())
	return &candidate, nil
}

// publish records an outbox event. Failures are logged, the alert itself is already stored.
func (s *service) publish(ctx context.Context, eventType outbox.EventType, alert *Alert, previousLevel Level) {
	payload := outbox.AlertPayload{
		AlertId:       alert.Id.Hex(),
		PatientId:     alert.PatientId.Hex(),
		EventType:     string(alert.EventType),
		Level:         int(alert.Level),
		PreviousLevel: int(previousLevel),
		Title:         alert.Title,
		EventTime:     alert.EventTime,
	}
	if alert.DoctorId != nil {
		payload.DoctorId = alert.DoctorId.Hex()
	}

	event, err := outbox.NewEvent(eventType, payload)
	if err == nil {
		err = s.outbox.Create(ctx, event)
	}
	if err != nil {
		s.logger.Errorw("unable to publish alert event", "alertId", alert.Id.Hex(), "eventType", eventType, "error", err)
	}
}
