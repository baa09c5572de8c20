// Package api exposes the HTTP surfaces of Scatter: the coordinator
// surface (registration, upload, download, delete) and the renter surface
// (shard storage). A Server hosts whichever surfaces its non-nil modules
// provide.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ScatterLabs/Scatter/modules"

	"gitlab.com/NebulousLabs/errors"
)

// Error is the wire form of every API failure. Clients parse the detail
// field.
type Error struct {
	Detail string `json:"detail"`
}

// Error implements the error interface for the wire type.
func (e Error) Error() string {
	return e.Detail
}

// writeError writes an error payload with the given status code.
func writeError(w http.ResponseWriter, err Error, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if json.NewEncoder(w).Encode(err) != nil {
		http.Error(w, err.Detail, code)
	}
}

// writeJSON writes the object to the ResponseWriter. If the encoding fails,
// an error is written instead.
func writeJSON(w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if json.NewEncoder(w).Encode(obj) != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// statusFor maps a module error to the status code the surface promises.
// Unrecognized errors are internal.
func statusFor(err error) int {
	switch {
	case err == modules.ErrNoRenters:
		return http.StatusServiceUnavailable
	case err == modules.ErrEmptyFile,
		err == modules.ErrInvalidPayment,
		err == modules.ErrInvalidFilename,
		err == modules.ErrInvalidRenterURL,
		err == modules.ErrInvalidBlobName:
		return http.StatusBadRequest
	case err == modules.ErrUnknownFilename,
		err == modules.ErrUnknownRenter,
		err == modules.ErrUnknownShard:
		return http.StatusNotFound
	case err == modules.ErrUnknownPublicKey,
		err == modules.ErrNoActiveChallenge,
		err == modules.ErrChallengeMismatch,
		err == modules.ErrArtifactExpired:
		return http.StatusUnauthorized
	case errors.Contains(err, modules.ErrIncompleteFile):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeModuleError writes a module error under its mapped status code.
func writeModuleError(w http.ResponseWriter, err error) {
	writeError(w, Error{Detail: err.Error()}, statusFor(err))
}
