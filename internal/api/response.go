// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/logging"
	"github.com/tomtom215/redisbackup/internal/validation"
)

// maxBodyBytes bounds request bodies; every request body here is a few fields.
const maxBodyBytes = 64 << 10

// Error codes not derived from a backup.Kind.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeInvalidJSON = "INVALID_JSON"
	CodeInternal    = "INTERNAL_ERROR"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is the error object of a failed response.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *APIResponse) {
	response.Metadata.Timestamp = time.Now().UTC()
	response.Metadata.RequestID = logging.RequestIDFromContext(r.Context())

	data, err := json.Marshal(response)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, r, status, &APIResponse{Status: "success", Data: data})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError) {
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().
			Str("code", sanitizeLogValue(apiErr.Code)).
			Str("error", sanitizeLogValue(apiErr.Message)).
			Msg("API Error")
	}
	respondJSON(w, r, status, &APIResponse{Status: "error", Error: apiErr})
}

// respondDomainError maps err to a status code by its backup.Kind.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error, details map[string]interface{}) {
	kind := backup.KindOf(err)
	code := strings.ToUpper(string(kind))
	if kind == backup.KindUnknown {
		code = CodeInternal
	}
	respondError(w, r, statusForKind(kind), &APIError{Code: code, Message: err.Error(), Details: details})
}

func statusForKind(kind backup.Kind) int {
	switch kind {
	case backup.KindNotFound:
		return http.StatusNotFound
	case backup.KindAlreadyRunning, backup.KindConflict:
		return http.StatusConflict
	case backup.KindConfiguration:
		return http.StatusBadRequest
	case backup.KindConnectivity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) *APIError {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &APIError{Code: CodeInvalidJSON, Message: "request body too large"}
		}
		return &APIError{Code: CodeInvalidJSON, Message: "failed to read request body"}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &APIError{Code: CodeInvalidJSON, Message: "request body is not valid JSON"}
	}
	return nil
}

// validateRequest validates a struct using go-playground/validator.
func validateRequest(v interface{}) *APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}
	apiErr := validationErr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}
