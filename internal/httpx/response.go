// Package httpx provides JSON response rendering and a structured HTTP error
// taxonomy shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// JSON writes v as an application/json response with 200 OK status.
// Encoding is performed directly to the response writer.
func JSON(w http.ResponseWriter, v any) error {
	return JSONWithStatus(w, v, http.StatusOK)
}

// JSONWithStatus writes v as an application/json response with a custom
// status code. A zero status resolves to 204 for nil data and 200 otherwise;
// 204 and 304 are written without a body per the HTTP spec.
func JSONWithStatus(w http.ResponseWriter, v any, status int) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if status == 0 {
		if v == nil {
			status = http.StatusNoContent
		} else {
			status = http.StatusOK
		}
	}

	w.WriteHeader(status)

	switch status {
	case http.StatusNoContent, http.StatusNotModified:
		return nil
	}

	return json.NewEncoder(w).Encode(v)
}
