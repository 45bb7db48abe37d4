package api

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/alerts/behavior"
	"github.com/lungcare/clinic/alerts/metric"
	"github.com/lungcare/clinic/alerts/questionnaire"
	"github.com/lungcare/clinic/config"
	"github.com/lungcare/clinic/errors"
	"github.com/lungcare/clinic/todos"
)

type Handler struct {
	alerts        alerts.Service
	todos         todos.Service
	metric        metric.Evaluator
	questionnaire questionnaire.Mapper
	behavior      behavior.Scanner
	location      *time.Location
	logger        *zap.SugaredLogger
}

type Params struct {
	fx.In

	Alerts        alerts.Service
	Todos         todos.Service
	Metric        metric.Evaluator
	Questionnaire questionnaire.Mapper
	Behavior      behavior.Scanner
	Config        *config.Config
	Logger        *zap.SugaredLogger
}

func NewHandler(p Params) *Handler {
	return &Handler{
		alerts:        p.Alerts,
		todos:         p.Todos,
		metric:        p.Metric,
		questionnaire: p.Questionnaire,
		behavior:      p.Behavior,
		location:      p.Config.Location(),
		logger:        p.Logger,
	}
}

func RegisterHandlers(e *echo.Echo, h *Handler) {
	v1 := e.Group("/v1")

	v1.GET("/todos", h.ListTodos)
	v1.GET("/todos/top", h.ListTopTodos)
	v1.GET("/todos/export", h.ExportTodos)

	v1.GET("/alerts/:alertId", h.GetAlert)
	v1.PUT("/alerts/:alertId/status", h.UpdateAlertStatus)
	v1.DELETE("/alerts/:alertId", h.DeactivateAlert)

	v1.POST("/readings/:readingId/evaluate", h.EvaluateReading)
	v1.POST("/questionnaire_submissions/:submissionId/evaluate", h.EvaluateQuestionnaireSubmission)
	v1.POST("/behavior_scans", h.RunBehaviorScan)

	v1.GET("/patients/:patientId/abnormal_count", h.CountAbnormal)
}

func objectIdParam(ec echo.Context, name string) (primitive.ObjectID, error) {
	value := ec.Param(name)
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid %s %q", errors.BadRequest, name, value)
	}
	return id, nil
}
