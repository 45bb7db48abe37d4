// Package metric raises data alerts for vital sign readings as they are written.
package metric

import (
	"context"
	errs "errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fatih/structs"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/deviation"
	"github.com/lungcare/clinic/patients"
	"github.com/lungcare/clinic/pointer"
	"github.com/lungcare/clinic/readings"
)

const (
	SourceType = "metric"

	TitleSpO2          = "血氧异常"
	TitleTemperature   = "体温异常"
	TitleWeight        = "体重异常"
	TitleBloodPressure = "血压异常"

	spo2ConfirmWindow  = 24 * time.Hour
	spo2ConfirmPercent = 5

	weightShortWindow      = 3 * 24 * time.Hour
	weightLongWindow       = 180 * 24 * time.Hour
	weightShortMaxChange   = 200 // hundredths of a kilogram
	weightLongMaxChangePct = 5
)

// SupportedMetricTypes are the reading kinds the evaluator raises alerts for.
var SupportedMetricTypes = mapset.NewSet(
	readings.MetricTypeSpO2,
	readings.MetricTypeTemperature,
	readings.MetricTypeWeight,
	readings.MetricTypeBloodPressure,
)

//go:generate mockgen --build_flags=--mod=mod -source=./metric.go -destination=./test/mock_evaluator.go -package test MockEvaluator

type Evaluator interface {
	// Evaluate classifies the reading and returns the alert it calls for, or nil.
	Evaluate(ctx context.Context, reading *readings.Reading) (*alerts.Submission, error)
	// Process evaluates the reading and submits the resulting alert.
	Process(ctx context.Context, reading *readings.Reading) (*alerts.Alert, error)
	ProcessById(ctx context.Context, readingId primitive.ObjectID) (*alerts.Alert, error)
}

type Params struct {
	fx.In

	Readings readings.Repository
	Patients patients.Repository
	Alerts   alerts.Service
	Logger   *zap.SugaredLogger
}

func NewEvaluator(p Params) (Evaluator, error) {
	return &evaluator{
		readings: p.Readings,
		patients: p.Patients,
		alerts:   p.Alerts,
		logger:   p.Logger,
	}, nil
}

type evaluator struct {
	readings readings.Repository
	patients patients.Repository
	alerts   alerts.Service
	logger   *zap.SugaredLogger
}

// Payload is the snapshot of the reading stored with the alert.
type Payload struct {
	ReadingId    string  `structs:"readingId" mapstructure:"readingId"`
	MetricType   string  `structs:"metricType" mapstructure:"metricType"`
	ValueMain    *string `structs:"valueMain" mapstructure:"valueMain"`
	ValueSub     *string `structs:"valueSub" mapstructure:"valueSub"`
	MeasuredTime string  `structs:"measuredTime" mapstructure:"measuredTime"`
}

func (e *evaluator) Evaluate(ctx context.Context, reading *readings.Reading) (*alerts.Submission, error) {
	if reading == nil {
		return nil, nil
	}
	if !SupportedMetricTypes.Contains(reading.MetricType) {
		e.logger.Debugw("skipping unsupported metric type", "readingId", reading.Id.Hex(), "metricType", reading.MetricType)
		return nil, nil
	}

	patient, err := e.patients.Get(ctx, reading.PatientId)
	if err != nil {
		return nil, fmt.Errorf("unable to get patient of reading %s: %w", reading.Id.Hex(), err)
	}

	switch reading.MetricType {
	case readings.MetricTypeSpO2:
		return e.evaluateSpO2(ctx, reading, patient)
	case readings.MetricTypeTemperature:
		return e.evaluateTemperature(ctx, reading)
	case readings.MetricTypeWeight:
		return e.evaluateWeight(ctx, reading, patient)
	case readings.MetricTypeBloodPressure:
		return e.evaluateBloodPressure(reading, patient), nil
	}
	return nil, nil
}

func (e *evaluator) Process(ctx context.Context, reading *readings.Reading) (*alerts.Alert, error) {
	submission, err := e.Evaluate(ctx, reading)
	if err != nil || submission == nil {
		return nil, err
	}
	return e.alerts.Submit(ctx, *submission)
}

func (e *evaluator) ProcessById(ctx context.Context, readingId primitive.ObjectID) (*alerts.Alert, error) {
	reading, err := e.readings.Get(ctx, readingId)
	if err != nil {
		return nil, err
	}
	return e.Process(ctx, reading)
}

func (e *evaluator) evaluateSpO2(ctx context.Context, reading *readings.Reading, patient *patients.Patient) (*alerts.Submission, error) {
	current, ok := pointer.ToFloat64(reading.ValueMain)
	if !ok {
		return nil, nil
	}

	confirmed, err := e.isSpO2DropConfirmed(ctx, reading, current, patient.Baselines.SpO2)
	if err != nil {
		return nil, err
	}

	level := deviation.SpO2Level(reading.ValueMain, patient.Baselines.SpO2, confirmed)
	if level == deviation.None {
		return nil, nil
	}

	content := fmt.Sprintf("血氧 %d%%", int(current))
	if baseline, ok := pointer.ToFloat64(patient.Baselines.SpO2); ok && baseline != 0 {
		content = fmt.Sprintf("血氧 %d%%（基线 %s%%）", int(current), formatValue(baseline))
	}
	return newSubmission(reading, level, TitleSpO2, content), nil
}

// isSpO2DropConfirmed reports whether the current drop of at least 5% from baseline was
// already seen in another reading during the preceding day.
func (e *evaluator) isSpO2DropConfirmed(ctx context.Context, reading *readings.Reading, current float64, baseline *float64) (bool, error) {
	b, ok := pointer.ToFloat64(baseline)
	if !ok || b <= 0 || !deviation.DropAtLeast(current, b, spo2ConfirmPercent) {
		return false, nil
	}

	from := reading.MeasuredTime.Add(-spo2ConfirmWindow)
	previous, err := e.readings.List(ctx, &readings.Filter{
		PatientId:  reading.PatientId,
		MetricType: readings.MetricTypeSpO2,
		From:       &from,
		To:         &reading.MeasuredTime,
		ExcludeId:  &reading.Id,
	})
	if err != nil {
		return false, fmt.Errorf("unable to list spo2 readings: %w", err)
	}

	for _, r := range previous {
		if value, ok := pointer.ToFloat64(r.ValueMain); ok && deviation.DropAtLeast(value, b, spo2ConfirmPercent) {
			return true, nil
		}
	}
	return false, nil
}

func (e *evaluator) evaluateTemperature(ctx context.Context, reading *readings.Reading) (*alerts.Submission, error) {
	current, ok := pointer.ToFloat64(reading.ValueMain)
	if !ok {
		return nil, nil
	}

	from := reading.MeasuredTime.Add(-72 * time.Hour)
	history, err := e.readings.List(ctx, &readings.Filter{
		PatientId:  reading.PatientId,
		MetricType: readings.MetricTypeTemperature,
		From:       &from,
		To:         &reading.MeasuredTime,
		ExcludeId:  &reading.Id,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list temperature readings: %w", err)
	}

	has48h := persistentFever(history, current, reading.MeasuredTime, 48*time.Hour)
	has72h := persistentFever(history, current, reading.MeasuredTime, 72*time.Hour)

	level := deviation.TemperatureLevel(reading.ValueMain, has48h, has72h)
	if level == deviation.None {
		return nil, nil
	}

	note := ""
	if has72h {
		note = "，连续72小时≥38℃"
	} else if has48h {
		note = "，连续48小时≥38℃"
	}
	content := fmt.Sprintf("体温 %s℃%s", formatValue(current), note)
	return newSubmission(reading, level, TitleTemperature, content), nil
}

// persistentFever reports whether the readings taken within the trailing window span all of it
// and are all fevers, the current one included. history must be ordered by measured time
// ascending and must not contain the current reading.
func persistentFever(history []*readings.Reading, current float64, now time.Time, window time.Duration) bool {
	if !deviation.IsFever(current) {
		return false
	}

	start := now.Add(-window)
	covered := false
	for _, r := range history {
		if r.MeasuredTime.Before(start) || r.MeasuredTime.After(now) {
			continue
		}
		if r.MeasuredTime.Equal(start) {
			covered = true
		}
		if value, ok := pointer.ToFloat64(r.ValueMain); ok && !deviation.IsFever(value) {
			return false
		}
	}
	return covered
}

func (e *evaluator) evaluateWeight(ctx context.Context, reading *readings.Reading, patient *patients.Patient) (*alerts.Submission, error) {
	current, ok := pointer.ToFloat64(reading.ValueMain)
	if !ok {
		return nil, nil
	}

	shortTerm, err := e.weightChangedShortTerm(ctx, reading, current)
	if err != nil {
		return nil, err
	}
	longTerm, err := e.weightChangedLongTerm(ctx, reading, current, patient.Baselines.Weight)
	if err != nil {
		return nil, err
	}
	if !shortTerm && !longTerm {
		return nil, nil
	}

	var reasons []string
	if shortTerm {
		reasons = append(reasons, "3天变化>2kg")
	}
	if longTerm {
		reasons = append(reasons, "180天变化>5%")
	}
	content := fmt.Sprintf("体重 %skg（%s）", formatValue(current), strings.Join(reasons, "、"))
	return newSubmission(reading, deviation.Mild, TitleWeight, content), nil
}

// weightChangedShortTerm reports whether the weights of the last three days, the current one
// included, spread more than 2kg.
func (e *evaluator) weightChangedShortTerm(ctx context.Context, reading *readings.Reading, current float64) (bool, error) {
	from := reading.MeasuredTime.Add(-weightShortWindow)
	span, err := e.readings.Span(ctx, &readings.Filter{
		PatientId:  reading.PatientId,
		MetricType: readings.MetricTypeWeight,
		From:       &from,
		To:         &reading.MeasuredTime,
		ExcludeId:  &reading.Id,
	})
	if err != nil {
		return false, fmt.Errorf("unable to get weight span: %w", err)
	}

	lowest, highest := current, current
	if value, ok := pointer.ToFloat64(span.Min); ok {
		lowest = math.Min(lowest, value)
	}
	if value, ok := pointer.ToFloat64(span.Max); ok {
		highest = math.Max(highest, value)
	}
	return hundredths(highest)-hundredths(lowest) > weightShortMaxChange, nil
}

// weightChangedLongTerm compares the current weight with the patient's baseline, or with the
// earliest weight of the last 180 days when no baseline is configured.
func (e *evaluator) weightChangedLongTerm(ctx context.Context, reading *readings.Reading, current float64, baseline *float64) (bool, error) {
	base, ok := pointer.ToFloat64(baseline)
	if !ok {
		from := reading.MeasuredTime.Add(-weightLongWindow)
		earliest, err := e.readings.Earliest(ctx, &readings.Filter{
			PatientId:  reading.PatientId,
			MetricType: readings.MetricTypeWeight,
			From:       &from,
			To:         &reading.MeasuredTime,
		})
		if errs.Is(err, readings.ErrNotFound) {
			return false, nil
		} else if err != nil {
			return false, fmt.Errorf("unable to get earliest weight: %w", err)
		}
		if base, ok = pointer.ToFloat64(earliest.ValueMain); !ok {
			return false, nil
		}
	}

	b := hundredths(base)
	if b <= 0 {
		return false, nil
	}
	diff := hundredths(current) - b
	if diff < 0 {
		diff = -diff
	}
	return diff*100 > weightLongMaxChangePct*b, nil
}

func (e *evaluator) evaluateBloodPressure(reading *readings.Reading, patient *patients.Patient) *alerts.Submission {
	sbp, okSbp := pointer.ToFloat64(reading.ValueMain)
	dbp, okDbp := pointer.ToFloat64(reading.ValueSub)
	if !okSbp || !okDbp {
		return nil
	}

	sbpRange := deviation.RangeFromBaseline(patient.Baselines.Systolic, deviation.DefaultSystolicRange)
	dbpRange := deviation.RangeFromBaseline(patient.Baselines.Diastolic, deviation.DefaultDiastolicRange)
	level := deviation.BloodPressureLevel(reading.ValueMain, reading.ValueSub, sbpRange, dbpRange)
	if level == deviation.None {
		return nil
	}

	content := fmt.Sprintf("血压 %d/%d", int(sbp), int(dbp))
	sbpBase, okSbpBase := pointer.ToFloat64(patient.Baselines.Systolic)
	dbpBase, okDbpBase := pointer.ToFloat64(patient.Baselines.Diastolic)
	if okSbpBase && okDbpBase && sbpBase != 0 && dbpBase != 0 {
		content += fmt.Sprintf("（基线 %s/%s）", formatValue(sbpBase), formatValue(dbpBase))
	}
	return newSubmission(reading, level, TitleBloodPressure, content)
}

func newSubmission(reading *readings.Reading, level deviation.Level, title, content string) *alerts.Submission {
	payload := Payload{
		ReadingId:    reading.Id.Hex(),
		MetricType:   string(reading.MetricType),
		ValueMain:    formatOptional(reading.ValueMain),
		ValueSub:     formatOptional(reading.ValueSub),
		MeasuredTime: reading.MeasuredTime.Format(time.RFC3339),
	}

	readingId := reading.Id
	return &alerts.Submission{
		PatientId:  reading.PatientId,
		EventType:  alerts.EventTypeData,
		Level:      alerts.Level(level),
		Title:      title,
		Content:    content,
		EventTime:  reading.MeasuredTime,
		SourceType: SourceType,
		SourceId:   &readingId,
		Payload:    structs.Map(payload),
		Dedup:      []alerts.DedupField{alerts.DedupSourceType, alerts.DedupTitle},
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) *string {
	if value, ok := pointer.ToFloat64(v); ok {
		return pointer.FromString(formatValue(value))
	}
	return nil
}

func hundredths(v float64) int64 {
	return int64(math.Round(v * 100))
}
