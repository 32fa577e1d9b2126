package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"saavnrelay/internal/relay"

	"github.com/sirupsen/logrus"
)

// respondJSON writes v as the JSON response body
func (ms *RelayServer) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ms.logger.WithError(err).Error("Failed to encode response")
	}
}

// respondWithError sends {"error": message}, logs the underlying cause and
// reports 5xx responses
func (ms *RelayServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	ms.writeError(w, r, statusCode, message, err, true)
}

// writeError is respondWithError with reporting optional. Recovered panics
// skip it: the reporting middleware has already captured them.
func (ms *RelayServer) writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error, report bool) {
	logEntry := ms.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
		if report {
			ms.reporter.CaptureException(r.Context(), errOrMessage(err, message), map[string]string{
				"path":   r.URL.Path,
				"status": http.StatusText(statusCode),
			})
		}
	} else {
		logEntry.Warn("Client error")
	}

	ms.respondJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithRelayError maps a pipeline error onto the HTTP error taxonomy:
// validation -> 400, upstream -> 500 generic message, anything else -> 500
// with the error text.
func (ms *RelayServer) respondWithRelayError(w http.ResponseWriter, r *http.Request, err error) {
	var relayErr *relay.Error
	if !errors.As(err, &relayErr) {
		ms.respondWithError(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}

	switch relayErr.Kind {
	case relay.KindValidation:
		ms.respondWithError(w, r, http.StatusBadRequest, relayErr.Message, relayErr.Err)
	default:
		ms.respondWithError(w, r, http.StatusInternalServerError, relayErr.Message, relayErr.Err)
	}
}

func errOrMessage(err error, message string) error {
	if err != nil {
		return err
	}
	return errors.New(message)
}
