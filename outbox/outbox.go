package outbox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CollectionName = "outbox"

// EventType identifies the kind of event
type EventType string

const (
	EventTypeAlertCreated   EventType = "alertCreated"
	EventTypeAlertEscalated EventType = "alertEscalated"
)

// Event is the common envelope for all outbox events
type Event struct {
	Id          *primitive.ObjectID `bson:"_id,omitempty"`
	EventType   EventType           `bson:"eventType"`
	CreatedTime time.Time           `bson:"createdTime"`
	Payload     bson.Raw            `bson:"payload"`
}

// AlertPayload is the payload of alertCreated and alertEscalated events. PreviousLevel is
// zero for newly created alerts.
type AlertPayload struct {
	AlertId       string    `bson:"alertId"`
	PatientId     string    `bson:"patientId"`
	DoctorId      string    `bson:"doctorId,omitempty"`
	EventType     string    `bson:"eventType"`
	Level         int       `bson:"level"`
	PreviousLevel int       `bson:"previousLevel,omitempty"`
	Title         string    `bson:"title"`
	EventTime     time.Time `bson:"eventTime"`
}

//go:generate mockgen --build_flags=--mod=mod -source=./outbox.go -destination=./test/mock_outbox.go -package test

type Repository interface {
	Create(ctx context.Context, event Event) error
	Initialize(ctx context.Context) error
}

// NewEvent creates an Event from a typed payload
func NewEvent(eventType EventType, payload interface{}) (Event, error) {
	raw, err := bson.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("error marshaling outbox event payload: %w", err)
	}

	return Event{
		EventType:   eventType,
		CreatedTime: time.Now(),
		Payload:     bson.Raw(raw),
	}, nil
}
