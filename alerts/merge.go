package alerts

import (
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outcome tells what a submission did to the alert store.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeEscalated Outcome = "escalated"
	OutcomeRefreshed Outcome = "refreshed"
)

type UpsertResult struct {
	Alert *Alert
	// Previous is the state before the submission, nil when the alert was created.
	Previous *Alert
	Outcome  Outcome
}

// DedupKey renders the configured dedup fields of the submission in a fixed order.
func (s Submission) DedupKey() string {
	fields := s.Dedup
	if len(fields) == 0 {
		fields = DefaultDedup
	}
	selected := mapset.NewSet(fields...)

	parts := make([]string, 0, 3)
	if selected.Contains(DedupSourceType) {
		parts = append(parts, "st="+s.SourceType)
	}
	if selected.Contains(DedupSourceId) {
		sourceId := "-"
		if s.SourceId != nil {
			sourceId = s.SourceId.Hex()
		}
		parts = append(parts, "sid="+sourceId)
	}
	if selected.Contains(DedupTitle) {
		parts = append(parts, "t="+s.Title)
	}
	return strings.Join(parts, "|")
}

// NewAlert builds the pending alert a submission creates when no open alert matches it.
func NewAlert(submission Submission, now time.Time) Alert {
	eventTime := submission.EventTime
	if eventTime.IsZero() {
		eventTime = now
	}
	payload := submission.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}

	return Alert{
		Id:            primitive.NewObjectID(),
		PatientId:     submission.PatientId,
		DoctorId:      submission.DoctorId,
		EventType:     submission.EventType,
		Level:         submission.Level,
		Title:         submission.Title,
		Content:       submission.Content,
		EventTime:     eventTime,
		Status:        StatusPending,
		SourceType:    submission.SourceType,
		SourceId:      submission.SourceId,
		SourcePayload: payload,
		DedupKey:      submission.DedupKey(),
		Open:          true,
		IsActive:      true,
		CreatedTime:   now,
		UpdatedTime:   now,
	}
}

// Merge escalates an existing open alert with a fresh evaluation. Severity and event time
// only move forward. Title, content and provenance always reflect the latest evaluation while
// the workflow fields are left as staff set them.
func Merge(existing Alert, candidate Alert) (Alert, Outcome) {
	merged := existing
	outcome := OutcomeRefreshed

	if candidate.Level > existing.Level {
		merged.Level = candidate.Level
		outcome = OutcomeEscalated
	}
	if candidate.EventTime.After(existing.EventTime) {
		merged.EventTime = candidate.EventTime
	}

	merged.Title = candidate.Title
	merged.Content = candidate.Content
	merged.SourceType = candidate.SourceType
	merged.SourceId = candidate.SourceId
	merged.SourcePayload = candidate.SourcePayload
	merged.UpdatedTime = candidate.UpdatedTime

	return merged, outcome
}
