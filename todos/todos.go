package todos

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/errors"
)

const (
	StatusAll = "all"

	dateLayout = "2006-01-02"
)

var (
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", errors.BadRequest)
	ErrDateRangeMissing = fmt.Errorf("%w: start and end date are required", errors.BadRequest)
	ErrInvalidTypeCode  = fmt.Errorf("%w: unsupported metric or questionnaire code", errors.BadRequest)
)

// Viewer is the staff member reading the to-do list. Doctors see their own patients'
// alerts, assistants those of every doctor they support. A viewer without doctors sees nothing.
type Viewer struct {
	UserId    string
	DoctorIds []primitive.ObjectID
}

// Filter narrows the to-do list. Dates are calendar days in the clinic's timezone, both
// inclusive. An empty status or StatusAll matches every status.
type Filter struct {
	Status    string
	StartDate string
	EndDate   string
	PatientId *primitive.ObjectID
}

type Item struct {
	Id                string     `json:"id"`
	PatientId         string     `json:"patientId"`
	PatientName       string     `json:"patientName"`
	Title             string     `json:"title"`
	EventType         string     `json:"eventType"`
	Level             string     `json:"level"`
	EventTime         time.Time  `json:"eventTime"`
	Status            string     `json:"status"`
	StatusDisplay     string     `json:"statusDisplay"`
	Content           string     `json:"content"`
	Handler           *string    `json:"handler,omitempty"`
	HandleTime        *time.Time `json:"handleTime,omitempty"`
	HandleContent     string     `json:"handleContent"`
	MetricType        string     `json:"metricType,omitempty"`
	MetricName        string     `json:"metricName,omitempty"`
	QuestionnaireCode string     `json:"questionnaireCode,omitempty"`
}

type Page struct {
	Items      []Item `json:"items"`
	TotalCount int    `json:"totalCount"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
}
