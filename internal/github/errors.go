package github

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v45/github"
	"github.com/hellausefulsoftware/gitircbot/internal/tracker"
)

// ErrNotFound is matched (with errors.Is) by errors for issues or
// repositories GitHub reports as missing.
var ErrNotFound = tracker.ErrNotFound

// TrackerError is any other failed GitHub call: transport failures, auth
// problems, validation errors, rate limits. Callers can use errors.As to
// read the status:
//
//	var trackerErr *TrackerError
//	if errors.As(err, &trackerErr) && trackerErr.StatusCode == http.StatusForbidden { ... }
type TrackerError struct {
	// Op names the failed operation, e.g. "create issue".
	Op string
	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int
	Err        error
}

func (e *TrackerError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *TrackerError) Unwrap() error { return e.Err }

// translate maps a go-github failure onto ErrNotFound or a TrackerError.
func translate(op string, resp *github.Response, err error) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	var errResp *github.ErrorResponse
	if status == 0 && errors.As(err, &errResp) && errResp.Response != nil {
		status = errResp.Response.StatusCode
	}

	if status == http.StatusNotFound {
		return fmt.Errorf("failed to %s: %w", op, ErrNotFound)
	}
	return &TrackerError{Op: op, StatusCode: status, Err: err}
}
