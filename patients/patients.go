package patients

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/errors"
)

var ErrNotFound = fmt.Errorf("patient %w", errors.NotFound)

// Baselines are optional per-patient reference values. A nil field means the population
// default applies.
type Baselines struct {
	SpO2      *float64 `bson:"spo2,omitempty"`
	Systolic  *float64 `bson:"systolic,omitempty"`
	Diastolic *float64 `bson:"diastolic,omitempty"`
	HeartRate *float64 `bson:"heartRate,omitempty"`
	Weight    *float64 `bson:"weight,omitempty"`
}

type Patient struct {
	Id        primitive.ObjectID  `bson:"_id,omitempty"`
	Name      string              `bson:"name"`
	DoctorId  *primitive.ObjectID `bson:"doctorId,omitempty"`
	IsActive  bool                `bson:"isActive"`
	Baselines Baselines           `bson:"baselines"`
}

type Filter struct {
	Ids        []primitive.ObjectID
	DoctorIds  []primitive.ObjectID
	ActiveOnly bool
}
