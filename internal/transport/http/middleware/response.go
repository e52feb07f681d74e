package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError rejects a request before it reaches a handler, using the
// same {"error": ...} envelope the handlers produce so clients see one shape.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
