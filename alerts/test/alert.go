package test

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/test"
)

var levels = []alerts.Level{alerts.LevelMild, alerts.LevelModerate, alerts.LevelSevere}

func RandomSubmission(patientId primitive.ObjectID) alerts.Submission {
	sourceId := primitive.NewObjectID()
	return alerts.Submission{
		PatientId:  patientId,
		EventType:  alerts.EventTypeOther,
		Level:      levels[test.Rand.Intn(len(levels))],
		Title:      test.Faker.Lorem().Word(),
		Content:    test.Faker.Lorem().Sentence(6),
		EventTime:  time.Now().Add(-time.Duration(test.Rand.Intn(72)) * time.Hour).Truncate(time.Millisecond),
		SourceType: "manual",
		SourceId:   &sourceId,
		Payload:    map[string]interface{}{"note": test.Faker.Lorem().Word()},
	}
}

// MetricSubmission mirrors what the metric evaluator submits for a reading.
func MetricSubmission(patientId primitive.ObjectID, title string, level alerts.Level, eventTime time.Time) alerts.Submission {
	readingId := primitive.NewObjectID()
	return alerts.Submission{
		PatientId:  patientId,
		EventType:  alerts.EventTypeData,
		Level:      level,
		Title:      title,
		Content:    title,
		EventTime:  eventTime,
		SourceType: "metric",
		SourceId:   &readingId,
		Payload:    map[string]interface{}{"readingId": readingId.Hex()},
		Dedup:      []alerts.DedupField{alerts.DedupSourceType, alerts.DedupTitle},
	}
}
