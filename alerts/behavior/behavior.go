// Package behavior scans patients for missed tasks and raises behavior alerts.
package behavior

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fatih/structs"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/config"
	"github.com/lungcare/clinic/patients"
	"github.com/lungcare/clinic/readings"
	"github.com/lungcare/clinic/tasks"
)

const (
	SourceTypeMedication    = "behavior_medication"
	SourceTypeQuestionnaire = "behavior_questionnaire"
	SourceTypeCheckup       = "behavior_checkup"

	sourceTypeMonitoringPrefix = "behavior_monitoring:"

	TitleMedication         = "用药未完成"
	TitleMonitoringPrefix   = "监测未完成-"
	TitleQuestionnaire      = "随访过期"
	TitleCheckup            = "复查过期"
	defaultMonitoringName   = "监测"
	maxConsecutiveDays      = 7
	overdueGraceDays        = 2
	defaultScanDayOffset    = -1
	defaultScanWorkersLimit = 1
)

var patientFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "clinic",
	Subsystem: "behavior_scan",
	Name:      "patient_failures_total",
	Help:      "The number of patients a behavior scan failed to evaluate",
})

type overdueRule struct {
	title      string
	sourceType string
}

// overdueCategories are scanned for tasks left pending past their scheduled day.
var overdueCategories = []tasks.Category{tasks.CategoryQuestionnaire, tasks.CategoryCheckup}

var overdueRules = map[tasks.Category]overdueRule{
	tasks.CategoryQuestionnaire: {title: TitleQuestionnaire, sourceType: SourceTypeQuestionnaire},
	tasks.CategoryCheckup:       {title: TitleCheckup, sourceType: SourceTypeCheckup},
}

// MonitoringSourceType is the source type of streak alerts for a monitoring template.
func MonitoringSourceType(code string) string {
	return sourceTypeMonitoringPrefix + code
}

//go:generate mockgen --build_flags=--mod=mod -source=./behavior.go -destination=./test/mock_scanner.go -package test MockScanner

type Scanner interface {
	// Scan evaluates the selected patients and returns the alerts they call for without
	// submitting them.
	Scan(ctx context.Context, opts RunOptions) (*Result, error)
	// Run scans the selected patients and submits the resulting alerts. A failing patient is
	// recorded in the result and does not stop the run.
	Run(ctx context.Context, opts RunOptions) (*Result, error)
}

type RunOptions struct {
	// AsOfDate is the last day counted for missed task streaks. Defaults to yesterday.
	AsOfDate *time.Time
	// PatientIds restricts the scan. All active patients are scanned when empty.
	PatientIds []primitive.ObjectID
	// Now is the reference time for overdue tasks. Defaults to the current time.
	Now time.Time
}

type Result struct {
	RunId       string
	AsOfDate    string
	Patients    int
	Submissions []alerts.Submission
	Alerts      []*alerts.Alert
	Failed      []primitive.ObjectID
}

type Params struct {
	fx.In

	Config   *config.Config
	Patients patients.Repository
	Tasks    tasks.Repository
	Alerts   alerts.Service
	Logger   *zap.SugaredLogger
}

func NewScanner(p Params) (Scanner, error) {
	workers := p.Config.ScanWorkers
	if workers < defaultScanWorkersLimit {
		workers = defaultScanWorkersLimit
	}

	return &scanner{
		patients: p.Patients,
		tasks:    p.Tasks,
		alerts:   p.Alerts,
		logger:   p.Logger,
		location: p.Config.Location(),
		workers:  workers,
	}, nil
}

type scanner struct {
	patients patients.Repository
	tasks    tasks.Repository
	alerts   alerts.Service
	logger   *zap.SugaredLogger
	location *time.Location
	workers  int
}

// StreakPayload is stored with missed task streak alerts.
type StreakPayload struct {
	MetricCode string `structs:"metricCode,omitempty" mapstructure:"metricCode"`
	MissedDays int    `structs:"missedDays" mapstructure:"missedDays"`
	AsOfDate   string `structs:"asOfDate" mapstructure:"asOfDate"`
	RunId      string `structs:"runId" mapstructure:"runId"`
}

// OverduePayload is stored with overdue task alerts.
type OverduePayload struct {
	TaskId      string `structs:"taskId" mapstructure:"taskId"`
	TaskDate    string `structs:"taskDate" mapstructure:"taskDate"`
	DaysOverdue int    `structs:"daysOverdue" mapstructure:"daysOverdue"`
	RunId       string `structs:"runId" mapstructure:"runId"`
}

// run carries the values shared by every patient of one scan.
type run struct {
	id        string
	asOf      time.Time
	today     time.Time
	templates []*tasks.MonitoringTemplate
}

func (s *scanner) Scan(ctx context.Context, opts RunOptions) (*Result, error) {
	return s.execute(ctx, opts, false)
}

func (s *scanner) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	return s.execute(ctx, opts, true)
}

func (s *scanner) execute(ctx context.Context, opts RunOptions, submit bool) (*Result, error) {
	r, err := s.newRun(ctx, opts)
	if err != nil {
		return nil, err
	}

	filter := &patients.Filter{ActiveOnly: true}
	if len(opts.PatientIds) > 0 {
		filter.Ids = opts.PatientIds
	}
	list, err := s.patients.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("unable to list patients: %w", err)
	}

	result := &Result{
		RunId:    r.id,
		AsOfDate: tasks.FormatDate(r.asOf),
		Patients: len(list),
	}
	s.logger.Infow("starting behavior scan", "runId", r.id, "scanDate", result.AsOfDate, "patients", len(list), "submit", submit)

	var mu sync.Mutex
	var errs error

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, patient := range list {
		patient := patient
		g.Go(func() error {
			submissions, created, err := s.processPatient(groupCtx, r, patient, submit)

			mu.Lock()
			defer mu.Unlock()
			result.Submissions = append(result.Submissions, submissions...)
			result.Alerts = append(result.Alerts, created...)
			if err != nil {
				patientFailuresTotal.Inc()
				result.Failed = append(result.Failed, patient.Id)
				errs = multierr.Append(errs, fmt.Errorf("patient %s: %w", patient.Id.Hex(), err))
				s.logger.Errorw("unable to scan patient behavior", "runId", r.id, "patientId", patient.Id.Hex(), "error", err)
			}
			// Failures are isolated per patient.
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Infow("finished behavior scan",
		"runId", r.id,
		"scanDate", result.AsOfDate,
		"submissions", len(result.Submissions),
		"alerts", len(result.Alerts),
		"failed", len(result.Failed),
	)
	return result, errs
}

func (s *scanner) newRun(ctx context.Context, opts RunOptions) (*run, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := tasks.Midnight(now, s.location)

	asOf := today.AddDate(0, 0, defaultScanDayOffset)
	if opts.AsOfDate != nil {
		asOf = tasks.Midnight(*opts.AsOfDate, s.location)
	}

	codes := make([]string, 0, readings.MonitoringMetricTypes.Cardinality())
	for _, metricType := range readings.MonitoringMetricTypes.ToSlice() {
		codes = append(codes, string(metricType))
	}
	sort.Strings(codes)

	templates, err := s.tasks.ListMonitoringTemplates(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("unable to list monitoring templates: %w", err)
	}

	return &run{
		id:        uuid.NewString(),
		asOf:      asOf,
		today:     today,
		templates: templates,
	}, nil
}

// processPatient evaluates one patient and, when submit is set, stores the alerts. Submission
// continues past a failing alert so that one bad rule does not hide the others.
func (s *scanner) processPatient(ctx context.Context, r *run, patient *patients.Patient, submit bool) ([]alerts.Submission, []*alerts.Alert, error) {
	submissions, err := s.evaluate(ctx, r, patient)
	if err != nil || !submit {
		return submissions, nil, err
	}

	var errs error
	created := make([]*alerts.Alert, 0, len(submissions))
	for _, submission := range submissions {
		alert, err := s.alerts.Submit(ctx, submission)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unable to submit %q alert: %w", submission.Title, err))
			continue
		}
		created = append(created, alert)
	}
	return submissions, created, errs
}

func (s *scanner) evaluate(ctx context.Context, r *run, patient *patients.Patient) ([]alerts.Submission, error) {
	var submissions []alerts.Submission

	medication, err := s.evaluateMedication(ctx, r, patient)
	if err != nil {
		return nil, err
	}
	if medication != nil {
		submissions = append(submissions, *medication)
	}

	for _, template := range r.templates {
		monitoring, err := s.evaluateMonitoring(ctx, r, patient, template)
		if err != nil {
			return nil, err
		}
		if monitoring != nil {
			submissions = append(submissions, *monitoring)
		}
	}

	overdue, err := s.evaluateOverdue(ctx, r, patient)
	if err != nil {
		return nil, err
	}
	return append(submissions, overdue...), nil
}

func (s *scanner) evaluateMedication(ctx context.Context, r *run, patient *patients.Patient) (*alerts.Submission, error) {
	missed, err := s.countMissedDays(ctx, r.asOf, &tasks.PendingFilter{
		PatientId: patient.Id,
		Category:  tasks.CategoryMedication,
	})
	if err != nil {
		return nil, err
	}
	level, ok := LevelForMissedDays(missed)
	if !ok {
		return nil, nil
	}

	payload := StreakPayload{MissedDays: missed, AsOfDate: tasks.FormatDate(r.asOf), RunId: r.id}
	return &alerts.Submission{
		PatientId:  patient.Id,
		DoctorId:   patient.DoctorId,
		EventType:  alerts.EventTypeBehavior,
		Level:      level,
		Title:      TitleMedication,
		Content:    fmt.Sprintf("连续%d天未完成用药任务", missed),
		EventTime:  r.asOf,
		SourceType: SourceTypeMedication,
		Payload:    structs.Map(payload),
	}, nil
}

func (s *scanner) evaluateMonitoring(ctx context.Context, r *run, patient *patients.Patient, template *tasks.MonitoringTemplate) (*alerts.Submission, error) {
	templateId := template.Id
	missed, err := s.countMissedDays(ctx, r.asOf, &tasks.PendingFilter{
		PatientId:  patient.Id,
		Category:   tasks.CategoryMonitoring,
		TemplateId: &templateId,
	})
	if err != nil {
		return nil, err
	}
	level, ok := LevelForMissedDays(missed)
	if !ok {
		return nil, nil
	}

	name := template.Name
	if name == "" {
		name = defaultMonitoringName
	}
	payload := StreakPayload{MetricCode: template.Code, MissedDays: missed, AsOfDate: tasks.FormatDate(r.asOf), RunId: r.id}
	return &alerts.Submission{
		PatientId:  patient.Id,
		DoctorId:   patient.DoctorId,
		EventType:  alerts.EventTypeBehavior,
		Level:      level,
		Title:      TitleMonitoringPrefix + name,
		Content:    fmt.Sprintf("连续%d天未完成%s监测", missed, name),
		EventTime:  r.asOf,
		SourceType: MonitoringSourceType(template.Code),
		Payload:    structs.Map(payload),
	}, nil
}

// countMissedDays counts the days with a pending task going back from asOf, stopping at the
// first day without one. At most a week is counted.
func (s *scanner) countMissedDays(ctx context.Context, asOf time.Time, filter *tasks.PendingFilter) (int, error) {
	filter.From = tasks.FormatDate(asOf.AddDate(0, 0, -(maxConsecutiveDays - 1)))
	filter.To = tasks.FormatDate(asOf)

	counts, err := s.tasks.PendingCountsByDate(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("unable to count pending tasks: %w", err)
	}

	missed := 0
	for offset := 0; offset < maxConsecutiveDays; offset++ {
		if counts[tasks.FormatDate(asOf.AddDate(0, 0, -offset))] <= 0 {
			break
		}
		missed++
	}
	return missed, nil
}

func (s *scanner) evaluateOverdue(ctx context.Context, r *run, patient *patients.Patient) ([]alerts.Submission, error) {
	onOrBefore := tasks.FormatDate(r.today.AddDate(0, 0, -overdueGraceDays))
	overdue, err := s.tasks.ListOverdue(ctx, patient.Id, overdueCategories, onOrBefore)
	if err != nil {
		return nil, fmt.Errorf("unable to list overdue tasks: %w", err)
	}

	submissions := make([]alerts.Submission, 0, len(overdue))
	for _, task := range overdue {
		rule, ok := overdueRules[task.Category]
		if !ok {
			s.logger.Debugw("skipping overdue task of unsupported category", "patientId", patient.Id.Hex(), "taskId", task.Id.Hex(), "category", task.Category)
			continue
		}
		taskDate, err := tasks.ParseDate(task.Date, s.location)
		if err != nil {
			s.logger.Warnw("skipping overdue task with invalid date", "patientId", patient.Id.Hex(), "taskId", task.Id.Hex(), "taskDate", task.Date)
			continue
		}

		days := tasks.DaysBetween(taskDate, r.today)
		level, offset, ok := LevelForOverdueDays(days)
		if !ok {
			continue
		}

		content := fmt.Sprintf("计划任务已逾期%d天", days)
		if task.Title != "" {
			content = fmt.Sprintf("%s已逾期%d天", task.Title, days)
		}
		taskId := task.Id
		payload := OverduePayload{TaskId: task.Id.Hex(), TaskDate: task.Date, DaysOverdue: days, RunId: r.id}
		submissions = append(submissions, alerts.Submission{
			PatientId:  patient.Id,
			DoctorId:   patient.DoctorId,
			EventType:  alerts.EventTypeBehavior,
			Level:      level,
			Title:      rule.title,
			Content:    content,
			EventTime:  taskDate.AddDate(0, 0, offset),
			SourceType: rule.sourceType,
			SourceId:   &taskId,
			Payload:    structs.Map(payload),
		})
	}
	return submissions, nil
}

// LevelForMissedDays maps a missed task streak to a level: a week is severe, three days
// moderate and a single day mild.
func LevelForMissedDays(days int) (alerts.Level, bool) {
	switch {
	case days >= 7:
		return alerts.LevelSevere, true
	case days >= 3:
		return alerts.LevelModerate, true
	case days >= 1:
		return alerts.LevelMild, true
	}
	return 0, false
}

// LevelForOverdueDays maps the days a task is overdue to a level and the number of days
// after the scheduled day at which that level was reached.
func LevelForOverdueDays(days int) (alerts.Level, int, bool) {
	switch {
	case days >= 7:
		return alerts.LevelSevere, 7, true
	case days >= 4:
		return alerts.LevelModerate, 4, true
	case days >= 2:
		return alerts.LevelMild, 2, true
	}
	return 0, 0, false
}
