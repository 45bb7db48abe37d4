package readings

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/errors"
)

var ErrNotFound = fmt.Errorf("reading %w", errors.NotFound)

type MetricType string

const (
	MetricTypeBloodPressure  MetricType = "M_BP"
	MetricTypeSpO2           MetricType = "M_SPO2"
	MetricTypeHeartRate      MetricType = "M_HR"
	MetricTypeSteps          MetricType = "M_STEPS"
	MetricTypeWeight         MetricType = "M_WEIGHT"
	MetricTypeTemperature    MetricType = "M_TEMP"
	MetricTypeUseMedications MetricType = "M_USE_MEDICATED"
)

// MonitoringMetricTypes are the kinds patients are asked to measure through monitoring plans.
var MonitoringMetricTypes = mapset.NewSet(
	MetricTypeBloodPressure,
	MetricTypeSpO2,
	MetricTypeHeartRate,
	MetricTypeSteps,
	MetricTypeWeight,
	MetricTypeTemperature,
)

var metricTypeNames = map[MetricType]string{
	MetricTypeBloodPressure:  "血压",
	MetricTypeSpO2:           "血氧饱和度",
	MetricTypeHeartRate:      "心率",
	MetricTypeSteps:          "步数",
	MetricTypeWeight:         "体重",
	MetricTypeTemperature:    "体温",
	MetricTypeUseMedications: "用药",
}

func (m MetricType) Name() string {
	if name, ok := metricTypeNames[m]; ok {
		return name
	}
	return string(m)
}

// Reading is a single vital sign sample. Blood pressure carries the systolic value in
// ValueMain and the diastolic value in ValueSub.
type Reading struct {
	Id           primitive.ObjectID `bson:"_id,omitempty"`
	PatientId    primitive.ObjectID `bson:"patientId"`
	MetricType   MetricType         `bson:"metricType"`
	ValueMain    *float64           `bson:"valueMain,omitempty"`
	ValueSub     *float64           `bson:"valueSub,omitempty"`
	MeasuredTime time.Time          `bson:"measuredTime"`
	IsActive     bool               `bson:"isActive"`
}

// Filter selects active readings of one kind for a patient. Both time bounds are inclusive.
type Filter struct {
	PatientId  primitive.ObjectID
	MetricType MetricType
	From       *time.Time
	To         *time.Time
	ExcludeId  *primitive.ObjectID
}

// Span summarizes the main values of the readings matching a filter.
type Span struct {
	Min   *float64 `bson:"min"`
	Max   *float64 `bson:"max"`
	Count int      `bson:"count"`
}
