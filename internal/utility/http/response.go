package http

import (
	"encoding/json"
	"net/http"

	"qbank/internal/logger"

	"go.uber.org/zap"
)

// Result is the envelope every endpoint answers with.
type Result struct {
	Success      bool        `json:"success"`
	Code         int         `json:"code"`
	Message      string      `json:"message"`
	Data         interface{} `json:"data,omitempty"`
	CreatedCount *int        `json:"createdCount,omitempty"`
	DeletedCount *int64      `json:"deletedCount,omitempty"`
	Requested    *int        `json:"requested,omitempty"`
}

func RespondSuccess(w http.ResponseWriter, data interface{}) {
	Respond(w, &Result{
		Success: true,
		Code:    http.StatusOK,
		Message: "Success",
		Data:    data,
	})
}

func RespondCreated(w http.ResponseWriter, message string, data interface{}) {
	Respond(w, &Result{
		Success: true,
		Code:    http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// RespondError sends an error JSON response. err is logged, never sent.
func RespondError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil {
		logger.Log.Error(message, zap.Int("code", code), zap.Error(err))
	}
	Respond(w, &Result{
		Success: false,
		Code:    code,
		Message: message,
	})
}

// Respond writes result with result.Code as the status.
func Respond(w http.ResponseWriter, result *Result) {
	if result.Code == 0 {
		result.Code = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Code)

	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Log.Error("failed to encode response", zap.Error(err))
	}
}
