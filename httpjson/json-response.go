package httpjson

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/programme-lv/judgeworker/srvcerror"
)

type JsonResponse struct {
	Status  string `json:"status"` // "success" or "error"
	Data    any    `json:"data,omitempty"`
	ErrCode string `json:"code,omitempty"`
	ErrMsg  string `json:"message,omitempty"`
}

func WriteSuccessJson(w http.ResponseWriter, data any) {
	WriteJson(w, http.StatusOK, JsonResponse{
		Status: "success",
		Data:   data,
	})
}

func WriteErrorJson(w http.ResponseWriter, errMsg string, statusCode int, errCode string) {
	WriteJson(w, statusCode, JsonResponse{
		Status:  "error",
		ErrMsg:  errMsg,
		ErrCode: errCode,
	})
}

func WriteJson(w http.ResponseWriter, statusCode int, resp JsonResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleError writes err as an error envelope. Errors without a code
// are reported as a bare internal error.
func HandleError(logger *slog.Logger, w http.ResponseWriter, err error) {
	srvcErr := &srvcerror.Error{}
	if !errors.As(err, &srvcErr) {
		logger.Error("internal server error", "error", err)
		WriteErrorJson(w,
			http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError,
			srvcerror.ErrCodeInternal)
		return
	}

	if srvcErr.HttpStatusCode() >= http.StatusInternalServerError {
		logger.Error("service error", "error", err, "code", srvcErr.ErrorCode())
	} else {
		logger.Warn("service error", "error", err, "code", srvcErr.ErrorCode())
	}
	WriteErrorJson(w, srvcErr.Message(), srvcErr.HttpStatusCode(), srvcErr.ErrorCode())
}
