package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/archive"
	"github.com/lungcare/clinic/errors"
	"github.com/lungcare/clinic/todos"
)

type AlertDetails struct {
	todos.Item

	EventTypeCode string                 `json:"eventTypeCode"`
	LevelCode     int                    `json:"levelCode"`
	SourceType    string                 `json:"sourceType"`
	SourceId      *string                `json:"sourceId,omitempty"`
	SourcePayload map[string]interface{} `json:"sourcePayload,omitempty"`
	CreatedTime   time.Time              `json:"createdTime"`
	UpdatedTime   time.Time              `json:"updatedTime"`
}

type UpdateAlertStatus struct {
	Status        string     `json:"status"`
	HandleContent *string    `json:"handleContent"`
	HandleTime    *time.Time `json:"handleTime"`
}

func NewAlertDetails(alert *alerts.Alert) AlertDetails {
	details := AlertDetails{
		Item:          todos.NewItem(alert),
		EventTypeCode: string(alert.EventType),
		LevelCode:     int(alert.Level),
		SourceType:    alert.SourceType,
		SourcePayload: alert.SourcePayload,
		CreatedTime:   alert.CreatedTime,
		UpdatedTime:   alert.UpdatedTime,
	}
	if alert.SourceId != nil {
		sourceId := alert.SourceId.Hex()
		details.SourceId = &sourceId
	}
	return details
}

func (h *Handler) GetAlert(ec echo.Context) error {
	alert, err := h.getAccessibleAlert(ec)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, NewAlertDetails(alert))
}

func (h *Handler) UpdateAlertStatus(ec echo.Context) error {
	alert, err := h.getAccessibleAlert(ec)
	if err != nil {
		return err
	}

	authData, err := getAuthData(ec)
	if err != nil {
		return err
	}

	dto := UpdateAlertStatus{}
	if err := ec.Bind(&dto); err != nil {
		return badRequest(err)
	}

	status, err := alerts.ParseStatusCode(dto.Status)
	if err != nil {
		return err
	}

	handlerId := authData.SubjectId
	updated, err := h.alerts.UpdateStatus(ec.Request().Context(), alert.Id, alerts.StatusUpdate{
		Status:        status,
		HandlerId:     &handlerId,
		HandleContent: dto.HandleContent,
		HandleTime:    dto.HandleTime,
	})
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, NewAlertDetails(updated))
}

func (h *Handler) DeactivateAlert(ec echo.Context) error {
	alert, err := h.getAccessibleAlert(ec)
	if err != nil {
		return err
	}

	authData, err := getAuthData(ec)
	if err != nil {
		return err
	}

	metadata := archive.Metadata{ArchivedByUserId: &authData.SubjectId}
	if reason := ec.QueryParam("reason"); reason != "" {
		metadata.Reason = &reason
	}

	deactivated, err := h.alerts.Deactivate(ec.Request().Context(), alert.Id, metadata)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, NewAlertDetails(deactivated))
}

func (h *Handler) getAccessibleAlert(ec echo.Context) (*alerts.Alert, error) {
	authData, err := getAuthData(ec)
	if err != nil {
		return nil, err
	}

	alertId, err := objectIdParam(ec, "alertId")
	if err != nil {
		return nil, err
	}

	alert, err := h.alerts.Get(ec.Request().Context(), alertId)
	if err != nil {
		return nil, err
	}
	if !canAccessAlert(authData, alert) {
		return nil, errors.Forbidden
	}
	return alert, nil
}
