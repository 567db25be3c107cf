package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"dress-rental/internal/apperr"

	"github.com/gorilla/mux"
)

// pathID parses a positive integer route variable
func pathID(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(apperr.CodeInvalidInput, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}

// queryInt reads an optional integer query parameter, 0 when absent
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(apperr.CodeInvalidInput, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return n, nil
}

func attachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
