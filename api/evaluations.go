package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/alerts/behavior"
	"github.com/lungcare/clinic/errors"
	"github.com/lungcare/clinic/tasks"
)

// EvaluationResult holds the alert created or escalated by an evaluation, if any.
type EvaluationResult struct {
	Alert *AlertDetails `json:"alert"`
}

type BehaviorScan struct {
	AsOfDate   string   `json:"asOfDate"`
	PatientIds []string `json:"patientIds"`
	DryRun     bool     `json:"dryRun"`
}

type BehaviorScanResult struct {
	RunId       string   `json:"runId"`
	AsOfDate    string   `json:"asOfDate"`
	Patients    int      `json:"patients"`
	Submissions int      `json:"submissions"`
	AlertIds    []string `json:"alertIds"`
	Failed      []string `json:"failed"`
}

func (h *Handler) EvaluateReading(ec echo.Context) error {
	if err := requireServerAccess(ec); err != nil {
		return err
	}

	readingId, err := objectIdParam(ec, "readingId")
	if err != nil {
		return err
	}

	alert, err := h.metric.ProcessById(ec.Request().Context(), readingId)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, newEvaluationResult(alert))
}

func (h *Handler) EvaluateQuestionnaireSubmission(ec echo.Context) error {
	if err := requireServerAccess(ec); err != nil {
		return err
	}

	submissionId, err := objectIdParam(ec, "submissionId")
	if err != nil {
		return err
	}

	alert, err := h.questionnaire.ProcessById(ec.Request().Context(), submissionId)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, newEvaluationResult(alert))
}

func (h *Handler) RunBehaviorScan(ec echo.Context) error {
	if err := requireServerAccess(ec); err != nil {
		return err
	}

	dto := BehaviorScan{}
	if err := ec.Bind(&dto); err != nil {
		return badRequest(err)
	}

	opts := behavior.RunOptions{}
	if dto.AsOfDate != "" {
		asOf, err := tasks.ParseDate(dto.AsOfDate, h.location)
		if err != nil {
			return fmt.Errorf("%w: invalid scan date %q", errors.BadRequest, dto.AsOfDate)
		}
		opts.AsOfDate = &asOf
	}
	for _, id := range dto.PatientIds {
		patientId, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return fmt.Errorf("%w: invalid patient id %q", errors.BadRequest, id)
		}
		opts.PatientIds = append(opts.PatientIds, patientId)
	}

	scan := h.behavior.Run
	if dto.DryRun {
		scan = h.behavior.Scan
	}

	result, err := scan(ec.Request().Context(), opts)
	if result == nil {
		return err
	}
	if err != nil {
		h.logger.Warnw("behavior scan completed with failures", "runId", result.RunId, "error", err)
	}
	return ec.JSON(http.StatusOK, newBehaviorScanResult(result))
}

func newEvaluationResult(alert *alerts.Alert) EvaluationResult {
	if alert == nil {
		return EvaluationResult{}
	}
	details := NewAlertDetails(alert)
	return EvaluationResult{Alert: &details}
}

func newBehaviorScanResult(result *behavior.Result) BehaviorScanResult {
	response := BehaviorScanResult{
		RunId:       result.RunId,
		AsOfDate:    result.AsOfDate,
		Patients:    result.Patients,
		Submissions: len(result.Submissions),
		AlertIds:    make([]string, 0, len(result.Alerts)),
		Failed:      make([]string, 0, len(result.Failed)),
	}
	for _, alert := range result.Alerts {
		response.AlertIds = append(response.AlertIds, alert.Id.Hex())
	}
	for _, patientId := range result.Failed {
		response.Failed = append(response.Failed, patientId.Hex())
	}
	return response
}
