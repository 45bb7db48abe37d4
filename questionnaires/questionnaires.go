package questionnaires

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/errors"
)

var (
	ErrNotFound           = fmt.Errorf("questionnaire %w", errors.NotFound)
	ErrSubmissionNotFound = fmt.Errorf("questionnaire submission %w", errors.NotFound)
)

// Codes are the questionnaires patients are assigned through follow-up plans.
var Codes = mapset.NewSet(
	"Q_PHYSICAL",
	"Q_BREATH",
	"Q_COUGH",
	"Q_APPETITE",
	"Q_PAIN",
	"Q_SLEEP",
	"Q_DEPRESSIVE",
	"Q_ANXIETY",
	"Q_PSYCH",
)

type Questionnaire struct {
	Id   primitive.ObjectID `bson:"_id,omitempty"`
	Code string             `bson:"code"`
	Name string             `bson:"name"`
}

// Submission is a scored questionnaire answer set. GradeLevel is computed by the scoring
// subsystem, 0 being normal.
type Submission struct {
	Id              primitive.ObjectID `bson:"_id,omitempty"`
	PatientId       primitive.ObjectID `bson:"patientId"`
	QuestionnaireId primitive.ObjectID `bson:"questionnaireId"`
	TotalScore      *float64           `bson:"totalScore,omitempty"`
	GradeLevel      int                `bson:"gradeLevel"`
	CreatedTime     time.Time          `bson:"createdTime"`
}
