// Package questionnaire raises alerts for questionnaire submissions graded as abnormal.
package questionnaire

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/structs"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/pointer"
	"github.com/lungcare/clinic/questionnaires"
)

const (
	SourceType  = "questionnaire"
	titleSuffix = "异常"
)

var gradeLevels = map[int]alerts.Level{
	2: alerts.LevelMild,
	3: alerts.LevelModerate,
	4: alerts.LevelSevere,
}

// LevelForGrade maps a questionnaire grade to an alert level. Grades below 2 are normal.
func LevelForGrade(grade int) (alerts.Level, bool) {
	level, ok := gradeLevels[grade]
	return level, ok
}

// Title is the title of the alerts raised for a questionnaire.
func Title(questionnaire *questionnaires.Questionnaire) string {
	return questionnaire.Name + titleSuffix
}

//go:generate mockgen --build_flags=--mod=mod -source=./questionnaire.go -destination=./test/mock_mapper.go -package test MockMapper

type Mapper interface {
	Evaluate(ctx context.Context, submission *questionnaires.Submission) (*alerts.Submission, error)
	Process(ctx context.Context, submission *questionnaires.Submission) (*alerts.Alert, error)
	ProcessById(ctx context.Context, submissionId primitive.ObjectID) (*alerts.Alert, error)
}

type Params struct {
	fx.In

	Questionnaires questionnaires.Repository
	Alerts         alerts.Service
	Logger         *zap.SugaredLogger
}

func NewMapper(p Params) (Mapper, error) {
	return &mapper{
		questionnaires: p.Questionnaires,
		alerts:         p.Alerts,
		logger:         p.Logger,
	}, nil
}

type mapper struct {
	questionnaires questionnaires.Repository
	alerts         alerts.Service
	logger         *zap.SugaredLogger
}

type Payload struct {
	QuestionnaireId   string `structs:"questionnaireId" mapstructure:"questionnaireId"`
	QuestionnaireCode string `structs:"questionnaireCode" mapstructure:"questionnaireCode"`
	TotalScore        string `structs:"totalScore" mapstructure:"totalScore"`
	GradeLevel        int    `structs:"gradeLevel" mapstructure:"gradeLevel"`
}

func (m *mapper) Evaluate(ctx context.Context, submission *questionnaires.Submission) (*alerts.Submission, error) {
	if submission == nil {
		return nil, nil
	}
	level, ok := LevelForGrade(submission.GradeLevel)
	if !ok {
		m.logger.Debugw("questionnaire submission graded normal", "submissionId", submission.Id.Hex(), "gradeLevel", submission.GradeLevel)
		return nil, nil
	}

	questionnaire, err := m.questionnaires.Get(ctx, submission.QuestionnaireId)
	if err != nil {
		return nil, fmt.Errorf("unable to get questionnaire of submission %s: %w", submission.Id.Hex(), err)
	}

	totalScore := 0.0
	if score, ok := pointer.ToFloat64(submission.TotalScore); ok {
		totalScore = score
	}
	score := strconv.FormatFloat(totalScore, 'f', -1, 64)
	title := Title(questionnaire)
	payload := Payload{
		QuestionnaireId:   questionnaire.Id.Hex(),
		QuestionnaireCode: questionnaire.Code,
		TotalScore:        score,
		GradeLevel:        submission.GradeLevel,
	}

	submissionId := submission.Id
	return &alerts.Submission{
		PatientId:  submission.PatientId,
		EventType:  alerts.EventTypeQuestionnaire,
		Level:      level,
		Title:      title,
		Content:    fmt.Sprintf("总分 %s，分级 %d 级", score, submission.GradeLevel),
		EventTime:  submission.CreatedTime,
		SourceType: SourceType,
		SourceId:   &submissionId,
		Payload:    structs.Map(payload),
		Dedup:      []alerts.DedupField{alerts.DedupSourceType, alerts.DedupTitle},
	}, nil
}

func (m *mapper) Process(ctx context.Context, submission *questionnaires.Submission) (*alerts.Alert, error) {
	request, err := m.Evaluate(ctx, submission)
	if err != nil || request == nil {
		return nil, err
	}
	return m.alerts.Submit(ctx, *request)
}

func (m *mapper) ProcessById(ctx context.Context, submissionId primitive.ObjectID) (*alerts.Alert, error) {
	submission, err := m.questionnaires.GetSubmission(ctx, submissionId)
	if err != nil {
		return nil, err
	}
	return m.Process(ctx, submission)
}
