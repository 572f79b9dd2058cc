package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
	"github.com/tendant/devicelimit/pkg/device"
	dlerrors "github.com/tendant/devicelimit/pkg/errors"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// VerifyResponse carries what the code entry form needs
type VerifyResponse struct {
	Username  string `json:"username"`
	CSRFToken string `json:"csrf_token"`
	Message   string `json:"message,omitempty"`
}

// DeviceResponse is one approved device as shown to clients
type DeviceResponse struct {
	ID         string    `json:"id"`
	Agent      string    `json:"agent"`
	ApprovedAt time.Time `json:"approved_at"`
	IPAddress  string    `json:"ip_address"`
	Class      string    `json:"class"`
	Status     string    `json:"status"`
}

// ListDevicesResponse is returned by the device list endpoints. The tokens are
// only set for administrators.
type ListDevicesResponse struct {
	AccountID   string           `json:"account_id"`
	Devices     []DeviceResponse `json:"devices"`
	DeleteToken string           `json:"delete_token,omitempty"`
	ResetToken  string           `json:"reset_token,omitempty"`
}

// DeleteDeviceRequest is the body of the admin removal endpoint
type DeleteDeviceRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	DeviceID  string `json:"device_id" validate:"required"`
	CSRFToken string `json:"csrf_token"`
}

// ResetDevicesRequest is the body of the admin reset endpoint
type ResetDevicesRequest struct {
	CSRFToken string `json:"csrf_token"`
}

// DeviceLimitRequest updates the global device limit
type DeviceLimitRequest struct {
	DeviceLimit int    `json:"device_limit" validate:"gte=1"`
	CSRFToken   string `json:"csrf_token"`
}

// DeviceLimitResponse reports the global device limit
type DeviceLimitResponse struct {
	DeviceLimit int    `json:"device_limit"`
	CSRFToken   string `json:"csrf_token,omitempty"`
}

// ActionResponse is the outcome of an admin mutation
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toDeviceResponses(records []device.Record) ([]DeviceResponse, error) {
	devices := make([]DeviceResponse, 0, len(records))
	if len(records) == 0 {
		return devices, nil
	}
	if err := copier.Copy(&devices, &records); err != nil {
		return nil, err
	}
	return devices, nil
}

func renderErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, code dlerrors.ErrorCode, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Status:  "error",
		Code:    string(code),
		Message: message,
	})
}

// renderError writes err using its error code; anything unstructured is a 500
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var e *dlerrors.Error
	if !errors.As(err, &e) {
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, dlerrors.ErrCodeInternal, "Internal server error")
		return
	}
	status := e.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "code", e.Code, "error", e)
	}
	renderErrorResponse(w, r, status, e.Code, e.Message)
}

func renderAction(w http.ResponseWriter, r *http.Request, statusCode int, success bool, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ActionResponse{Success: success, Message: message})
}
