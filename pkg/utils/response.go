package utils

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"dress-rental/internal/apperr"
)

type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] encode response: %v", err)
	}
}

// Message writes {"error": msg, "code": code} with an explicit status
func Message(w http.ResponseWriter, status int, code, msg string) {
	JSON(w, status, ErrorBody{Error: msg, Code: code})
}

// Error maps a service error onto its status. Details of unclassified and
// persistence failures are logged, not returned.
func Error(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	code := string(apperr.CodeOf(err))
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] internal error: %v", err)
		msg = "internal server error"
		if code == "" {
			code = "INTERNAL_ERROR"
		}
	}
	Message(w, status, code, msg)
}

// Decode reads a JSON request body into v
func Decode(r *http.Request, v interface{}) error {
	return decode(r, v, false)
}

// DecodeOptional is Decode for endpoints whose body may be omitted. An
// empty body, chunked or not, leaves v untouched.
func DecodeOptional(r *http.Request, v interface{}) error {
	return decode(r, v, true)
}

func decode(r *http.Request, v interface{}, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return apperr.Validation(apperr.CodeInvalidInput, "invalid request body: "+io.EOF.Error())
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation(apperr.CodeInvalidInput, "invalid request body: "+err.Error())
	}
	return nil
}
