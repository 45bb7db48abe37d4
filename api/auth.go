package api

import (
	"github.com/labstack/echo/v4"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/auth"
	"github.com/lungcare/clinic/errors"
	"github.com/lungcare/clinic/todos"
)

func getAuthData(ec echo.Context) (*auth.Auth, error) {
	authData := auth.GetAuthData(ec.Request().Context())
	if authData == nil {
		return nil, errors.Unauthorized
	}
	return authData, nil
}

func getViewer(ec echo.Context) (todos.Viewer, error) {
	authData, err := getAuthData(ec)
	if err != nil {
		return todos.Viewer{}, err
	}
	return todos.Viewer{
		UserId:    authData.SubjectId,
		DoctorIds: authData.DoctorIds,
	}, nil
}

func requireServerAccess(ec echo.Context) error {
	authData, err := getAuthData(ec)
	if err != nil {
		return err
	}
	if !auth.IsServerAuth(authData) {
		return errors.Forbidden
	}
	return nil
}

// canAccessAlert reports whether the caller follows the doctor the alert is assigned to.
func canAccessAlert(authData *auth.Auth, alert *alerts.Alert) bool {
	if auth.IsServerAuth(authData) {
		return true
	}
	if alert.DoctorId == nil {
		return false
	}
	for _, doctorId := range authData.DoctorIds {
		if doctorId == *alert.DoctorId {
			return true
		}
	}
	return false
}
