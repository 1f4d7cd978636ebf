// Package handler holds the HTTP plumbing shared by every controller: the
// response envelope, error translation and middleware.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
)

const maxBodyBytes = 1 << 20

type errorPayload struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Status string       `json:"status"`
	Error  errorPayload `json:"error"`
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess wraps data in the success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, map[string]any{
		"status": "success",
		"data":   data,
	})
}

// WritePage is WriteSuccess plus the pagination block.
func WritePage(w http.ResponseWriter, data any, pagination map[string]int) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"data":       data,
		"pagination": pagination,
	})
}

// WriteError translates err into the error envelope. Untyped errors are
// logged and reported as internal without details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := RequestIDFrom(r.Context())

	appErr, ok := appErrors.As(err)
	if !ok {
		Logger(r.Context()).WithError(err).Error("request failed")
		WriteJSON(w, http.StatusInternalServerError, errorResponse{
			Status: "error",
			Error: errorPayload{
				Code:      string(appErrors.KindInternal),
				Message:   "internal server error",
				RequestID: requestID,
			},
		})
		return
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		Logger(r.Context()).WithError(err).Error("request failed")
	}
	WriteJSON(w, status, errorResponse{
		Status: "error",
		Error: errorPayload{
			Code:      string(appErr.Kind),
			Message:   appErr.Message,
			RequestID: requestID,
			Details:   appErr.Details,
		},
	})
}

func writeRaw(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	WriteJSON(w, status, errorResponse{
		Status: "error",
		Error:  errorPayload{Code: code, Message: msg, RequestID: RequestIDFrom(r.Context())},
	})
}

// DecodeJSON reads a JSON body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return appErrors.InvalidInput("invalid body: " + err.Error())
}

// QueryInt parses an integer query parameter, returning 0 when absent or malformed.
func QueryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
