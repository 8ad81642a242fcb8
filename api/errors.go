package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"crowdfundr/contract"
	"crowdfundr/sdk"
)

// APIError is what a failed request answers with.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Cause      error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Cause }

func badRequest(code, message string, cause error) *APIError {
	return &APIError{Code: code, Message: message, StatusCode: http.StatusBadRequest, Cause: cause}
}

var errCallerMismatch = &APIError{Code: "CALLER_MISMATCH", Message: "caller does not own this account", StatusCode: http.StatusForbidden}

var statusByCode = map[contract.Code]int{
	contract.CodeInvalidAmount:              http.StatusBadRequest,
	contract.CodeInvalidAddress:             http.StatusBadRequest,
	contract.CodeInvalidArgument:            http.StatusBadRequest,
	contract.CodeAmountOverflow:             http.StatusBadRequest,
	contract.CodeBelowMinimumContribution:   http.StatusBadRequest,
	contract.CodeGoalTooLow:                 http.StatusBadRequest,
	contract.CodeNotOwner:                   http.StatusForbidden,
	contract.CodeNotBadgeHolder:             http.StatusForbidden,
	contract.CodeCampaignNotFound:           http.StatusNotFound,
	contract.CodeUnknownBadge:               http.StatusNotFound,
	contract.CodeInactiveCampaign:           http.StatusConflict,
	contract.CodeNotActive:                  http.StatusConflict,
	contract.CodeNotSuccessful:              http.StatusConflict,
	contract.CodeNotFailed:                  http.StatusConflict,
	contract.CodeNoContribution:             http.StatusConflict,
	contract.CodeInsufficientContribution:   http.StatusConflict,
	contract.CodeExceedsAvailableBalance:    http.StatusConflict,
	contract.CodeUnrecognizedDirectTransfer: http.StatusUnprocessableEntity,
	contract.CodeCampaignBusy:               http.StatusServiceUnavailable,
}

// toAPIError maps domain errors onto HTTP. Ledger shortfalls are checked before contract
// codes since contract calls surface them wrapped.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, sdk.ErrInsufficientFunds) {
		return &APIError{Code: "INSUFFICIENT_FUNDS", Message: err.Error(), StatusCode: http.StatusUnprocessableEntity, Cause: err}
	}
	if code := contract.CodeOf(err); code != contract.CodeUnknown {
		status, ok := statusByCode[code]
		if !ok {
			status = http.StatusInternalServerError
		}
		return &APIError{Code: string(code), Message: err.Error(), StatusCode: status, Cause: err}
	}
	return &APIError{Code: string(contract.CodeUnknown), Message: "internal error", StatusCode: http.StatusInternalServerError, Cause: err}
}

type errorBody struct {
	Error     *APIError `json:"error"`
	RequestID string    `json:"requestId,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	log := loggerFrom(r.Context(), s.log)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("code", apiErr.Code), zap.Error(err))
	}
	writeJSON(w, apiErr.StatusCode, errorBody{Error: apiErr, RequestID: requestIDFrom(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
