package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"leavelite/internal/apperror"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("write json failed", zap.Error(err))
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// StatusFor maps an error kind onto the HTTP status the gateway answers with.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindAuthentication:
		return http.StatusUnauthorized
	case apperror.KindAuthorization:
		return http.StatusForbidden
	case apperror.KindDependency:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// FailError writes err as an envelope. Dependency failures keep their cause out of the response.
func FailError(w http.ResponseWriter, err error, requestID string) {
	appErr, ok := apperror.As(err)
	if !ok {
		zap.L().Error("unclassified error", zap.Error(err), zap.String("requestId", requestID))
		Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
		return
	}
	if appErr.Kind == apperror.KindDependency && appErr.Err != nil {
		zap.L().Error("dependency failure", zap.Error(appErr), zap.String("requestId", requestID))
	}
	FailWithDetails(w, StatusFor(appErr.Kind), string(appErr.Kind), appErr.Message, appErr.Details, requestID)
}
