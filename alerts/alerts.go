package alerts

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/errors"
)

var (
	ErrNotFound         = fmt.Errorf("alert %w", errors.NotFound)
	ErrInvalidEventType = fmt.Errorf("%w: invalid event type", errors.BadRequest)
	ErrInvalidLevel     = fmt.Errorf("%w: invalid event level", errors.BadRequest)
	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", errors.BadRequest)
	ErrTitleRequired    = fmt.Errorf("%w: title is required", errors.BadRequest)
	ErrPatientRequired  = fmt.Errorf("%w: patient id is required", errors.BadRequest)
	ErrReopenConflict   = fmt.Errorf("%w: another open alert exists for the same cause", errors.Conflict)
)

type EventType string

const (
	EventTypeData          EventType = "data"
	EventTypeBehavior      EventType = "behavior"
	EventTypeArchive       EventType = "archive"
	EventTypeQuestionnaire EventType = "questionnaire"
	EventTypeOther         EventType = "other"
)

var eventTypeLabels = map[EventType]string{
	EventTypeData:          "数据异常",
	EventTypeBehavior:      "行为异常",
	EventTypeArchive:       "新增档案",
	EventTypeQuestionnaire: "问卷异常",
	EventTypeOther:         "其他",
}

func ParseEventType(value string) (EventType, error) {
	eventType := EventType(value)
	if !eventType.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidEventType, value)
	}
	return eventType, nil
}

func (e EventType) Valid() bool {
	_, ok := eventTypeLabels[e]
	return ok
}

func (e EventType) Label() string {
	return eventTypeLabels[e]
}

type Level int

const (
	LevelMild     Level = 1
	LevelModerate Level = 2
	LevelSevere   Level = 3
)

func ParseLevel(value int) (Level, error) {
	level := Level(value)
	if !level.Valid() {
		return 0, fmt.Errorf("%w %d", ErrInvalidLevel, value)
	}
	return level, nil
}

func (l Level) Valid() bool {
	return l >= LevelMild && l <= LevelSevere
}

func (l Level) Label() string {
	if !l.Valid() {
		return ""
	}
	return fmt.Sprintf("%d级", int(l))
}

type Status int

const (
	StatusPending   Status = 1
	StatusEscalated Status = 2
	StatusCompleted Status = 3
)

// OpenStatuses are the workflow states in which an alert still awaits staff action.
var OpenStatuses = mapset.NewSet(StatusPending, StatusEscalated)

var statusCodes = map[Status]string{
	StatusPending:   "pending",
	StatusEscalated: "escalate",
	StatusCompleted: "completed",
}

var statusLabels = map[Status]string{
	StatusPending:   "待跟进",
	StatusEscalated: "升级主任",
	StatusCompleted: "已完成",
}

func ParseStatus(value int) (Status, error) {
	status := Status(value)
	if !status.Valid() {
		return 0, fmt.Errorf("%w %d", ErrInvalidStatus, value)
	}
	return status, nil
}

// ParseStatusCode maps the codes used by the to-do list ("pending", "escalate", "completed").
func ParseStatusCode(code string) (Status, error) {
	for status, c := range statusCodes {
		if c == code {
			return status, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrInvalidStatus, code)
}

func (s Status) Valid() bool {
	_, ok := statusCodes[s]
	return ok
}

func (s Status) Code() string {
	return statusCodes[s]
}

func (s Status) Label() string {
	return statusLabels[s]
}

func (s Status) IsOpen() bool {
	return OpenStatuses.Contains(s)
}

type Alert struct {
	Id            primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	PatientId     primitive.ObjectID     `json:"patientId" bson:"patientId"`
	DoctorId      *primitive.ObjectID    `json:"doctorId,omitempty" bson:"doctorId,omitempty"`
	EventType     EventType              `json:"eventType" bson:"eventType"`
	Level         Level                  `json:"level" bson:"level"`
	Title         string                 `json:"title" bson:"title"`
	Content       string                 `json:"content" bson:"content"`
	EventTime     time.Time              `json:"eventTime" bson:"eventTime"`
	Status        Status                 `json:"status" bson:"status"`
	HandlerId     *string                `json:"handlerId,omitempty" bson:"handlerId,omitempty"`
	HandleTime    *time.Time             `json:"handleTime,omitempty" bson:"handleTime,omitempty"`
	HandleContent string                 `json:"handleContent" bson:"handleContent"`
	SourceType    string                 `json:"sourceType" bson:"sourceType"`
	SourceId      *primitive.ObjectID    `json:"sourceId,omitempty" bson:"sourceId"`
	SourcePayload map[string]interface{} `json:"sourcePayload,omitempty" bson:"sourcePayload,omitempty"`
	IsActive      bool                   `json:"isActive" bson:"isActive"`
	CreatedTime   time.Time              `json:"createdTime" bson:"createdTime"`
	UpdatedTime   time.Time              `json:"updatedTime" bson:"updatedTime"`

	// DedupKey identifies the cause of the alert. At most one active alert in an open status
	// exists per patient, event type and dedup key. Open caches that condition so it can back a
	// partial unique index.
	DedupKey string `json:"-" bson:"dedupKey"`
	Open     bool   `json:"-" bson:"open"`
}

// IsOpen reports whether the alert can still be escalated by a new evaluation.
func (a *Alert) IsOpen() bool {
	return a.IsActive && a.Status.IsOpen()
}

// DedupField names an alert attribute taking part in the dedup key.
type DedupField string

const (
	DedupSourceType DedupField = "sourceType"
	DedupSourceId   DedupField = "sourceId"
	DedupTitle      DedupField = "title"
)

// DefaultDedup groups alerts by producing rule and triggering record. A nil source id is a
// value of its own, so rules without a single source row share one alert per patient.
var DefaultDedup = []DedupField{DedupSourceType, DedupSourceId}

// Submission is an evaluator's request to raise an alert.
type Submission struct {
	PatientId  primitive.ObjectID
	DoctorId   *primitive.ObjectID
	EventType  EventType
	Level      Level
	Title      string
	Content    string
	EventTime  time.Time
	SourceType string
	SourceId   *primitive.ObjectID
	Payload    map[string]interface{}

	// Dedup selects the fields identifying the alert's cause. DefaultDedup is used when empty.
	Dedup []DedupField
}

func (s Submission) Validate() error {
	if s.PatientId.IsZero() {
		return ErrPatientRequired
	}
	if !s.EventType.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidEventType, s.EventType)
	}
	if !s.Level.Valid() {
		return fmt.Errorf("%w %d", ErrInvalidLevel, s.Level)
	}
	if s.Title == "" {
		return ErrTitleRequired
	}
	return nil
}

// StatusUpdate is a staff workflow transition. Nil handler and content leave the stored
// values untouched.
type StatusUpdate struct {
	Status        Status
	HandlerId     *string
	HandleContent *string
	HandleTime    *time.Time
}

type Filter struct {
	PatientId     *primitive.ObjectID
	DoctorIds     []primitive.ObjectID
	EventTypes    []EventType
	Levels        []Level
	Statuses      []Status
	EventTimeFrom *time.Time
	// EventTimeTo is exclusive.
	EventTimeTo *time.Time
	SourceType  *string
	// PayloadMetricType and PayloadQuestionnaireCode match the snapshot recorded by the
	// metric and questionnaire evaluators.
	PayloadMetricType        *string
	PayloadQuestionnaireCode *string
	IncludeInactive          bool
}

type ListResult struct {
	Alerts     []*Alert `bson:"data"`
	TotalCount int      `bson:"count"`
}
