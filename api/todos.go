package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/errors"
	"github.com/lungcare/clinic/store"
	"github.com/lungcare/clinic/todos"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TodoCount struct {
	Count int `json:"count"`
}

func (h *Handler) ListTodos(ec echo.Context) error {
	viewer, err := getViewer(ec)
	if err != nil {
		return err
	}

	pagination := store.DefaultPagination()
	filter, err := bindTodosFilter(ec, func(b *echo.ValueBinder) {
		b.Int("offset", &pagination.Offset).Int("limit", &pagination.Limit)
	})
	if err != nil {
		return err
	}

	page, err := h.todos.List(ec.Request().Context(), viewer, filter, pagination)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, page)
}

func (h *Handler) ListTopTodos(ec echo.Context) error {
	viewer, err := getViewer(ec)
	if err != nil {
		return err
	}

	limit := 0
	if err := echo.QueryParamsBinder(ec).Int("limit", &limit).BindError(); err != nil {
		return badRequest(err)
	}

	items, err := h.todos.TopUrgent(ec.Request().Context(), viewer, limit)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, items)
}

func (h *Handler) ExportTodos(ec echo.Context) error {
	viewer, err := getViewer(ec)
	if err != nil {
		return err
	}

	filter, err := bindTodosFilter(ec, nil)
	if err != nil {
		return err
	}

	file, err := h.todos.Export(ec.Request().Context(), viewer, filter)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("todos-%s.xlsx", time.Now().Format("20060102"))
	ec.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	ec.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	ec.Response().WriteHeader(http.StatusOK)
	return file.Write(ec.Response())
}

func (h *Handler) CountAbnormal(ec echo.Context) error {
	if _, err := getAuthData(ec); err != nil {
		return err
	}

	patientId, err := objectIdParam(ec, "patientId")
	if err != nil {
		return err
	}

	var typeCode, startDate, endDate string
	err = echo.QueryParamsBinder(ec).
		String("type", &typeCode).
		String("startDate", &startDate).
		String("endDate", &endDate).
		BindError()
	if err != nil {
		return badRequest(err)
	}

	count, err := h.todos.CountAbnormal(ec.Request().Context(), patientId, typeCode, startDate, endDate)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, TodoCount{Count: count})
}

func bindTodosFilter(ec echo.Context, extra func(b *echo.ValueBinder)) (todos.Filter, error) {
	var filter todos.Filter
	var patientId string

	binder := echo.QueryParamsBinder(ec).
		String("status", &filter.Status).
		String("startDate", &filter.StartDate).
		String("endDate", &filter.EndDate).
		String("patientId", &patientId)
	if extra != nil {
		extra(binder)
	}
	if err := binder.BindError(); err != nil {
		return filter, badRequest(err)
	}

	if patientId != "" {
		id, err := primitive.ObjectIDFromHex(patientId)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid patient id %q", errors.BadRequest, patientId)
		}
		filter.PatientId = &id
	}
	return filter, nil
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %s", errors.BadRequest, err.Error())
}
