// Package jsonutil provides helper functions for JSON API responses.
//
// Handlers answer with the envelope the site frontend expects:
//
//	{"success": true,  "message": "...", "data": ...}
//	{"success": false, "error": "...",   "message": "..."}
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Envelope is the response body shared by every API endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Success writes {"success": true, "message": message, "data": data}.
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, data any) {
	Success(w, http.StatusOK, message, data)
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, message string, data any) {
	Success(w, http.StatusCreated, message, data)
}

// Fail writes {"success": false, "error": errMsg, "message": message}.
func Fail(w http.ResponseWriter, status int, errMsg, message string) {
	JSON(w, status, Envelope{Error: errMsg, Message: message})
}

// BadRequest writes a 400 failure envelope.
func BadRequest(w http.ResponseWriter, errMsg, message string) {
	Fail(w, http.StatusBadRequest, errMsg, message)
}

// Unauthorized writes a 401 failure envelope.
func Unauthorized(w http.ResponseWriter, message string) {
	Fail(w, http.StatusUnauthorized, "Unauthorized", message)
}

// Forbidden writes a 403 failure envelope.
func Forbidden(w http.ResponseWriter, message string) {
	Fail(w, http.StatusForbidden, "Forbidden", message)
}

// NotFound writes a 404 failure envelope.
func NotFound(w http.ResponseWriter, errMsg, message string) {
	Fail(w, http.StatusNotFound, errMsg, message)
}

// Conflict writes a 409 failure envelope.
func Conflict(w http.ResponseWriter, errMsg, message string) {
	Fail(w, http.StatusConflict, errMsg, message)
}

// Unavailable writes a 503 failure envelope.
func Unavailable(w http.ResponseWriter, message string) {
	Fail(w, http.StatusServiceUnavailable, "Service unavailable", message)
}

// InternalError writes a 500 failure envelope.
// Do not expose internal details to clients; log the actual error separately.
func InternalError(w http.ResponseWriter, message string) {
	Fail(w, http.StatusInternalServerError, "Internal server error", message)
}

// ValidationError writes a 400 response with field-level errors.
//
// Usage:
//
//	jsonutil.ValidationError(w, map[string]string{
//	    "title.en": "Title (English) is required",
//	})
func ValidationError(w http.ResponseWriter, fields map[string]string) {
	JSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"error":   "Validation failed",
		"message": "Please correct the highlighted fields",
		"fields":  fields,
	})
}

// ErrEmptyBody is returned by Decode when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// Decode reads and decodes JSON from the request body into v.
//
// Usage:
//
//	var input createBlogInput
//	if err := jsonutil.Decode(r, &input); err != nil {
//	    jsonutil.BadRequest(w, "Invalid JSON", err.Error())
//	    return
//	}
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
