package test

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/readings"
)

func NewReading(patientId primitive.ObjectID, metricType readings.MetricType, measured time.Time, values ...float64) readings.Reading {
	reading := readings.Reading{
		Id:           primitive.NewObjectID(),
		PatientId:    patientId,
		MetricType:   metricType,
		MeasuredTime: measured,
		IsActive:     true,
	}
	if len(values) > 0 {
		reading.ValueMain = &values[0]
	}
	if len(values) > 1 {
		reading.ValueSub = &values[1]
	}
	return reading
}
