package todos

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/tealeg/xlsx/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/alerts/metric"
	"github.com/lungcare/clinic/alerts/questionnaire"
	"github.com/lungcare/clinic/config"
	"github.com/lungcare/clinic/patients"
	"github.com/lungcare/clinic/questionnaires"
	"github.com/lungcare/clinic/readings"
	"github.com/lungcare/clinic/store"
)

const exportPageSize = 500

//go:generate mockgen --build_flags=--mod=mod -source=./service.go -destination=./test/mock_service.go -package test MockService

type Service interface {
	List(ctx context.Context, viewer Viewer, filter Filter, pagination store.Pagination) (*Page, error)
	// TopUrgent returns the most urgent open alerts. A non-positive limit uses the configured default.
	TopUrgent(ctx context.Context, viewer Viewer, limit int) ([]Item, error)
	// CountAbnormal counts a patient's active alerts for a metric type or questionnaire code
	// between two calendar days, both inclusive.
	CountAbnormal(ctx context.Context, patientId primitive.ObjectID, typeCode string, startDate string, endDate string) (int, error)
	Export(ctx context.Context, viewer Viewer, filter Filter) (*xlsx.File, error)
}

// countableMetricTypes are the metric codes accepted by CountAbnormal.
var countableMetricTypes = mapset.NewSet(readings.MetricTypeUseMedications).Union(readings.MonitoringMetricTypes)

type Params struct {
	fx.In

	Config   *config.Config
	Alerts   alerts.Service
	Patients patients.Repository
	Logger   *zap.SugaredLogger
}

func NewService(p Params) (Service, error) {
	return &service{
		alerts:   p.Alerts,
		patients: p.Patients,
		logger:   p.Logger,
		location: p.Config.Location(),
		topLimit: p.Config.TodoTopLimit,
	}, nil
}

type service struct {
	alerts   alerts.Service
	patients patients.Repository
	logger   *zap.SugaredLogger
	location *time.Location
	topLimit int
}

var _ Service = &service{}

func (s *service) List(ctx context.Context, viewer Viewer, filter Filter, pagination store.Pagination) (*Page, error) {
	alertsFilter, err := s.listFilter(viewer, filter)
	if err != nil {
		return nil, err
	}

	result, err := s.alerts.List(ctx, alertsFilter, pagination, listSorts())
	if err != nil {
		return nil, err
	}

	items, err := s.items(ctx, result.Alerts)
	if err != nil {
		return nil, err
	}

	return &Page{
		Items:      items,
		TotalCount: result.TotalCount,
		Offset:     pagination.Offset,
		Limit:      pagination.Limit,
	}, nil
}

func (s *service) TopUrgent(ctx context.Context, viewer Viewer, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = s.topLimit
	}

	filter := &alerts.Filter{
		DoctorIds: viewerDoctorIds(viewer),
		Statuses:  alerts.OpenStatuses.ToSlice(),
	}
	sorts := []*store.Sort{
		{Attribute: "level", Ascending: false},
		{Attribute: "eventTime", Ascending: false},
	}

	result, err := s.alerts.List(ctx, filter, store.DefaultPagination().WithLimit(limit), sorts)
	if err != nil {
		return nil, err
	}
	return s.items(ctx, result.Alerts)
}

func (s *service) CountAbnormal(ctx context.Context, patientId primitive.ObjectID, typeCode string, startDate string, endDate string) (int, error) {
	if typeCode == "" {
		return 0, ErrInvalidTypeCode
	}
	if startDate == "" || endDate == "" {
		return 0, ErrDateRangeMissing
	}

	from, to, err := s.dateRange(startDate, endDate)
	if err != nil {
		return 0, err
	}

	filter := &alerts.Filter{
		PatientId:     &patientId,
		EventTimeFrom: from,
		EventTimeTo:   to,
	}

	switch {
	case countableMetricTypes.Contains(readings.MetricType(typeCode)):
		sourceType := metric.SourceType
		filter.EventTypes = []alerts.EventType{alerts.EventTypeData}
		filter.SourceType = &sourceType
		filter.PayloadMetricType = &typeCode
	case questionnaires.Codes.Contains(typeCode):
		sourceType := questionnaire.SourceType
		filter.EventTypes = []alerts.EventType{alerts.EventTypeQuestionnaire}
		filter.SourceType = &sourceType
		filter.PayloadQuestionnaireCode = &typeCode
	default:
		return 0, fmt.Errorf("%w %q", ErrInvalidTypeCode, typeCode)
	}

	return s.alerts.Count(ctx, filter)
}

func (s *service) Export(ctx context.Context, viewer Viewer, filter Filter) (*xlsx.File, error) {
	alertsFilter, err := s.listFilter(viewer, filter)
	if err != nil {
		return nil, err
	}

	var items []Item
	pagination := store.DefaultPagination().WithLimit(exportPageSize)
	for {
		result, err := s.alerts.List(ctx, alertsFilter, pagination, listSorts())
		if err != nil {
			return nil, err
		}
		page, err := s.items(ctx, result.Alerts)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)

		pagination = pagination.WithOffset(pagination.Offset + len(result.Alerts))
		if len(result.Alerts) == 0 || pagination.Offset >= result.TotalCount {
			break
		}
	}

	s.logger.Infow("exporting to-do list", "userId", viewer.UserId, "count", len(items))
	return NewReport(items, s.location).Generate()
}

func (s *service) listFilter(viewer Viewer, filter Filter) (*alerts.Filter, error) {
	result := &alerts.Filter{
		PatientId: filter.PatientId,
		DoctorIds: viewerDoctorIds(viewer),
	}

	if filter.Status != "" && filter.Status != StatusAll {
		status, err := alerts.ParseStatusCode(filter.Status)
		if err != nil {
			return nil, err
		}
		result.Statuses = []alerts.Status{status}
	}

	if filter.StartDate != "" {
		from, err := s.parseDate(filter.StartDate)
		if err != nil {
			return nil, err
		}
		result.EventTimeFrom = &from
	}
	if filter.EndDate != "" {
		end, err := s.parseDate(filter.EndDate)
		if err != nil {
			return nil, err
		}
		to := end.AddDate(0, 0, 1)
		result.EventTimeTo = &to
	}

	return result, nil
}

func (s *service) dateRange(startDate string, endDate string) (*time.Time, *time.Time, error) {
	from, err := s.parseDate(startDate)
	if err != nil {
		return nil, nil, err
	}
	end, err := s.parseDate(endDate)
	if err != nil {
		return nil, nil, err
	}
	to := end.AddDate(0, 0, 1)
	return &from, &to, nil
}

func (s *service) parseDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, value, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, value)
	}
	return date, nil
}

func (s *service) items(ctx context.Context, list []*alerts.Alert) ([]Item, error) {
	items := make([]Item, 0, len(list))
	if len(list) == 0 {
		return items, nil
	}

	patientIds := mapset.NewSet[primitive.ObjectID]()
	for _, alert := range list {
		patientIds.Add(alert.PatientId)
	}
	found, err := s.patients.List(ctx, &patients.Filter{Ids: patientIds.ToSlice()})
	if err != nil {
		return nil, fmt.Errorf("unable to get patients of alerts: %w", err)
	}
	names := make(map[primitive.ObjectID]string, len(found))
	for _, patient := range found {
		names[patient.Id] = patient.Name
	}

	for _, alert := range list {
		item := NewItem(alert)
		item.PatientName = names[alert.PatientId]
		if err := decodeSource(alert, &item); err != nil {
			s.logger.Warnw("unable to decode alert source payload", "alertId", alert.Id.Hex(), "error", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func NewItem(alert *alerts.Alert) Item {
	return Item{
		Id:            alert.Id.Hex(),
		PatientId:     alert.PatientId.Hex(),
		Title:         alert.Title,
		EventType:     alert.EventType.Label(),
		Level:         alert.Level.Label(),
		EventTime:     alert.EventTime,
		Status:        alert.Status.Code(),
		StatusDisplay: alert.Status.Label(),
		Content:       alert.Content,
		Handler:       alert.HandlerId,
		HandleTime:    alert.HandleTime,
		HandleContent: alert.HandleContent,
	}
}

func decodeSource(alert *alerts.Alert, item *Item) error {
	if len(alert.SourcePayload) == 0 {
		return nil
	}

	switch alert.SourceType {
	case metric.SourceType:
		var payload metric.Payload
		if err := mapstructure.Decode(alert.SourcePayload, &payload); err != nil {
			return err
		}
		item.MetricType = payload.MetricType
		item.MetricName = readings.MetricType(payload.MetricType).Name()
	case questionnaire.SourceType:
		var payload questionnaire.Payload
		if err := mapstructure.Decode(alert.SourcePayload, &payload); err != nil {
			return err
		}
		item.QuestionnaireCode = payload.QuestionnaireCode
	}
	return nil
}

func viewerDoctorIds(viewer Viewer) []primitive.ObjectID {
	if viewer.DoctorIds == nil {
		return []primitive.ObjectID{}
	}
	return viewer.DoctorIds
}

func listSorts() []*store.Sort {
	return []*store.Sort{
		{Attribute: "eventTime", Ascending: false},
	}
}
