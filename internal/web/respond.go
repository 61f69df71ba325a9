package web

import (
	"encoding/json"
	"net/http"

	"timely/internal/apperr"
	"timely/internal/output"
)

func respondJSON(w http.ResponseWriter, status int, env output.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func respondData(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, output.Success(data))
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(apperr.CodeOf(err)), output.Failure(err))
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeNoData, apperr.CodeCategoryNotFound, apperr.CodeRuleNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidTimeRange:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
