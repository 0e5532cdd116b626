package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   apperror.Kind `json:"error"`
	Message string        `json:"message"`
	Detail  string        `json:"detail,omitempty"`
}

// responder is embedded by every handler; it owns the error boundary
type responder struct {
	diagnostic bool
	validate   *validator.Validate
	logger     *logging.Logger
}

func newResponder(prefix string, diagnostic bool) responder {
	return responder{
		diagnostic: diagnostic,
		validate:   validator.New(),
		logger:     logging.WithPrefix(prefix),
	}
}

func (rs responder) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.Warnf("Encoding response: %v", err)
	}
}

// writeError maps err to its status and body. Internal causes are logged, never returned,
// unless diagnostic mode is on.
func (rs responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.StatusOf(err)
	body := errorBody{Error: apperror.KindOf(err), Message: apperror.Message(err)}
	if rs.diagnostic {
		body.Detail = apperror.Detail(err)
	}

	fields := logrus.Fields{"method": r.Method, "path": r.URL.Path, "status": status}
	if status >= http.StatusInternalServerError {
		rs.logger.WithFields(fields).Errorf("%+v", err)
	} else {
		rs.logger.WithFields(fields).Debugf("%v", err)
	}
	rs.writeJSON(w, status, body)
}

// decode reads a JSON body into dst and runs struct validation
func (rs responder) decode(ctx context.Context, r *http.Request, dst interface{}) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.Validation("invalid request body: %v", err)
	}
	if err := rs.validate.StructCtx(ctx, dst); err != nil {
		return apperror.Validation("validation failed: %v", err)
	}
	return nil
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, apperror.Validation("invalid %s %q", name, raw)
	}
	return v, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, apperror.Validation("invalid %s %q", name, raw)
	}
	return v, nil
}

// callerFrom returns the identity set by the auth middleware
func callerFrom(r *http.Request) *middleware.Identity {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return nil
	}
	return id
}

// viewerID is 0 for anonymous callers
func viewerID(r *http.Request) int {
	if id := callerFrom(r); id != nil {
		return id.UserID
	}
	return 0
}
