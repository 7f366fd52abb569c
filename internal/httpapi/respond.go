package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/orgball2608/storyshare/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithErr reports a coded error. Uncoded failures never leak details.
func (s *Server) respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	message := errors.GetMessage(err)
	if errors.GetCode(err) == "" {
		message = "Internal server error"
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondWithJSON(w, code, map[string]string{"error": message, "code": errors.GetCode(err)})
}
