package test

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/archive"
	"github.com/lungcare/clinic/store"
)

// MemoryRepository is an in-process alerts.Repository with the same create-or-escalate
// semantics as the mongo repository.
type MemoryRepository struct {
	mu     sync.Mutex
	alerts map[primitive.ObjectID]alerts.Alert
}

var _ alerts.Repository = &MemoryRepository{}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		alerts: make(map[primitive.ObjectID]alerts.Alert),
	}
}

func (m *MemoryRepository) Upsert(_ context.Context, candidate alerts.Alert) (*alerts.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.alerts {
		if existing.Open && existing.PatientId == candidate.PatientId &&
			existing.EventType == candidate.EventType && existing.DedupKey == candidate.DedupKey {
			merged, outcome := alerts.Merge(existing, candidate)
			m.alerts[merged.Id] = merged
			previous := existing
			return &alerts.UpsertResult{Alert: &merged, Previous: &previous, Outcome: outcome}, nil
		}
	}

	created := candidate
	if created.Id.IsZero() {
		created.Id = primitive.NewObjectID()
	}
	created.Status = alerts.StatusPending
	created.IsActive = true
	created.Open = true
	m.alerts[created.Id] = created
	return &alerts.UpsertResult{Alert: &created, Outcome: alerts.OutcomeCreated}, nil
}

func (m *MemoryRepository) Create(_ context.Context, alert alerts.Alert) (*alerts.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alert.Id.IsZero() {
		alert.Id = primitive.NewObjectID()
	}
	alert.DedupKey = "id=" + alert.Id.Hex()
	alert.Open = alert.IsOpen()
	m.alerts[alert.Id] = alert
	return &alert, nil
}

func (m *MemoryRepository) Get(_ context.Context, id primitive.ObjectID) (*alerts.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[id]
	if !ok {
		return nil, alerts.ErrNotFound
	}
	return &alert, nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, update alerts.StatusUpdate) (*alerts.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[id]
	if !ok {
		return nil, alerts.ErrNotFound
	}

	alert.Status = update.Status
	if update.HandleTime != nil {
		alert.HandleTime = update.HandleTime
	}
	if update.HandlerId != nil {
		alert.HandlerId = update.HandlerId
	}
	if update.HandleContent != nil {
		alert.HandleContent = *update.HandleContent
	}
	alert.Open = alert.IsOpen()
	alert.UpdatedTime = time.Now()

	if alert.Open {
		for otherId, other := range m.alerts {
			if otherId != id && other.Open && other.PatientId == alert.PatientId &&
				other.EventType == alert.EventType && other.DedupKey == alert.DedupKey {
				return nil, alerts.ErrReopenConflict
			}
		}
	}

	m.alerts[id] = alert
	return &alert, nil
}

func (m *MemoryRepository) Deactivate(_ context.Context, id primitive.ObjectID) (*alerts.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[id]
	if !ok {
		return nil, alerts.ErrNotFound
	}
	alert.IsActive = false
	alert.Open = false
	alert.UpdatedTime = time.Now()
	m.alerts[id] = alert
	return &alert, nil
}

func (m *MemoryRepository) List(_ context.Context, filter *alerts.Filter, pagination store.Pagination, sorts []*store.Sort) (*alerts.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matching := m.filter(filter)
	sort.SliceStable(matching, func(i, j int) bool {
		return less(matching[i], matching[j], sorts)
	})

	result := &alerts.ListResult{Alerts: make([]*alerts.Alert, 0), TotalCount: len(matching)}
	for i := pagination.Offset; i < len(matching) && i < pagination.Offset+pagination.Limit; i++ {
		result.Alerts = append(result.Alerts, matching[i])
	}
	return result, nil
}

func (m *MemoryRepository) Count(_ context.Context, filter *alerts.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.filter(filter)), nil
}

// All returns every stored alert, including deactivated ones.
func (m *MemoryRepository) All() []alerts.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]alerts.Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		all = append(all, alert)
	}
	return all
}

func (m *MemoryRepository) filter(filter *alerts.Filter) []*alerts.Alert {
	if filter == nil {
		filter = &alerts.Filter{}
	}

	doctorIds := mapset.NewSet(filter.DoctorIds...)
	eventTypes := mapset.NewSet(filter.EventTypes...)
	levels := mapset.NewSet(filter.Levels...)
	statuses := mapset.NewSet(filter.Statuses...)

	matching := make([]*alerts.Alert, 0)
	for _, stored := range m.alerts {
		alert := stored
		if !filter.IncludeInactive && !alert.IsActive {
			continue
		}
		if filter.PatientId != nil && alert.PatientId != *filter.PatientId {
			continue
		}
		if filter.DoctorIds != nil && (alert.DoctorId == nil || !doctorIds.Contains(*alert.DoctorId)) {
			continue
		}
		if eventTypes.Cardinality() > 0 && !eventTypes.Contains(alert.EventType) {
			continue
		}
		if levels.Cardinality() > 0 && !levels.Contains(alert.Level) {
			continue
		}
		if statuses.Cardinality() > 0 && !statuses.Contains(alert.Status) {
			continue
		}
		if filter.EventTimeFrom != nil && alert.EventTime.Before(*filter.EventTimeFrom) {
			continue
		}
		if filter.EventTimeTo != nil && !alert.EventTime.Before(*filter.EventTimeTo) {
			continue
		}
		if filter.SourceType != nil && alert.SourceType != *filter.SourceType {
			continue
		}
		if filter.PayloadMetricType != nil && alert.SourcePayload["metricType"] != *filter.PayloadMetricType {
			continue
		}
		if filter.PayloadQuestionnaireCode != nil && alert.SourcePayload["questionnaireCode"] != *filter.PayloadQuestionnaireCode {
			continue
		}
		matching = append(matching, &alert)
	}
	return matching
}

func less(a, b *alerts.Alert, sorts []*store.Sort) bool {
	for _, s := range sorts {
		if s == nil {
			continue
		}
		var cmp int
		switch s.Attribute {
		case "level":
			cmp = int(a.Level) - int(b.Level)
		case "eventTime":
			cmp = a.EventTime.Compare(b.EventTime)
		case "createdTime":
			cmp = a.CreatedTime.Compare(b.CreatedTime)
		}
		if cmp != 0 {
			if s.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
	}
	if len(sorts) == 0 {
		if cmp := a.EventTime.Compare(b.EventTime); cmp != 0 {
			return cmp > 0
		}
	}
	return bytes.Compare(a.Id[:], b.Id[:]) > 0
}

// MemoryArchive records archived alerts.
type MemoryArchive struct {
	mu       sync.Mutex
	Archived []alerts.Alert
}

var _ archive.Repository[alerts.Alert] = &MemoryArchive{}

func (m *MemoryArchive) Create(_ context.Context, alert alerts.Alert, _ archive.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Archived = append(m.Archived, alert)
	return nil
}

func (m *MemoryArchive) Initialize(context.Context, []string) error {
	return nil
}
