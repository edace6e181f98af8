package cascade

import (
	"errors"
	"fmt"

	"github.com/go-authgate/authcascade/internal/core"
)

// Result is the outcome of one backend call inside a fan-out.
type Result struct {
	Backend    string
	Capability core.Capability
	Err        error
}

// Report lists per-backend outcomes in dispatch order.
//
// The plain fan-out methods (AddUser, UpdateUser, RemoveUser, ResetPassword)
// never fail because a backend failed; callers that need to know use the
// ...Report variants.
type Report []Result

// Succeeded returns the backends whose call returned no error.
func (r Report) Succeeded() []string {
	var out []string
	for _, res := range r {
		if res.Err == nil {
			out = append(out, res.Backend)
		}
	}
	return out
}

// Failed returns the backends whose call returned an error.
func (r Report) Failed() []string {
	var out []string
	for _, res := range r {
		if res.Err != nil {
			out = append(out, res.Backend)
		}
	}
	return out
}

// AnySucceeded is true when at least one backend call succeeded.
func (r Report) AnySucceeded() bool {
	for _, res := range r {
		if res.Err == nil {
			return true
		}
	}
	return false
}

// Err joins the per-backend errors, or returns nil when none failed.
func (r Report) Err() error {
	var errs []error
	for _, res := range r {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", res.Backend, res.Capability, res.Err))
		}
	}
	return errors.Join(errs...)
}
