package cascade

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-authgate/authcascade/internal/core"

	"go.uber.org/zap"
)

// Dispatch results recorded per public operation.
const (
	resultSuccess     = "success"
	resultRejected    = "rejected"
	resultPartial     = "partial"
	resultUnsupported = "unsupported"
	resultError       = "error"
)

// call invokes fn on the backend registered under id and records its outcome.
func (c *Cascade) call(
	id string,
	capability core.Capability,
	fn func(b core.Backend) error,
) error {
	b, ok := c.drivers[id]
	if !ok {
		c.recorder.RecordBackendCall(id, capability, false, 0)
		return fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}

	start := time.Now()
	err := fn(b)
	c.recorder.RecordBackendCall(id, capability, err == nil, time.Since(start))
	return err
}

// suppress logs a backend failure that the dispatch policy tolerates.
func (c *Cascade) suppress(id string, capability core.Capability, err error) {
	c.logger.Warn("backend call failed, continuing",
		zap.String("driver", id),
		zap.String("capability", string(capability)),
		zap.Error(err),
	)
}

func (c *Cascade) observe(capability core.Capability, start time.Time, result string) {
	c.recorder.RecordDispatch(capability, result, time.Since(start))
}

// fanOut runs fn on every backend in ids, tolerating individual failures.
func (c *Cascade) fanOut(
	capability core.Capability,
	ids []string,
	fn func(b core.Backend) error,
) Report {
	report := make(Report, 0, len(ids))
	for _, id := range ids {
		err := c.call(id, capability, fn)
		if err != nil {
			c.suppress(id, capability, err)
		}
		report = append(report, Result{Backend: id, Capability: capability, Err: err})
	}
	return report
}

func (c *Cascade) observeReport(capability core.Capability, start time.Time, report Report) {
	switch {
	case len(report.Failed()) == 0:
		c.observe(capability, start, resultSuccess)
	case report.AnySucceeded():
		c.observe(capability, start, resultPartial)
	default:
		c.observe(capability, start, resultError)
	}
}

// Authenticate tries every authenticate backend in order and returns the
// result of the first one that accepts the credentials. When none does the
// error wraps ErrBadLogin, joined with any non-credential backend faults.
func (c *Cascade) Authenticate(
	ctx context.Context,
	username, password string,
) (*core.AuthResult, error) {
	start := time.Now()

	var faults []error
	for _, id := range c.capabilities[core.CapAuthenticate] {
		var result *core.AuthResult
		err := c.call(id, core.CapAuthenticate, func(b core.Backend) error {
			var err error
			result, err = b.Authenticate(ctx, username, password)
			if err == nil && (result == nil || !result.Success) {
				err = core.ErrInvalidCredentials
			}
			return err
		})
		if err == nil {
			if result.Backend == "" {
				result.Backend = id
			}
			c.observe(core.CapAuthenticate, start, resultSuccess)
			return result, nil
		}

		if errors.Is(err, core.ErrInvalidCredentials) {
			c.logger.Debug("backend rejected credentials",
				zap.String("driver", id),
				zap.String("username", username),
			)
			continue
		}
		c.suppress(id, core.CapAuthenticate, err)
		faults = append(faults, fmt.Errorf("%s: %w", id, err))
	}

	c.observe(core.CapAuthenticate, start, resultRejected)
	if len(faults) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrBadLogin, errors.Join(faults...))
	}
	return nil, ErrBadLogin
}

// Transparent asks each transparent backend in turn to identify the caller
// from ambient request data. Backend errors are skipped; ok is false when no
// backend could identify the caller.
func (c *Cascade) Transparent(ctx context.Context) (*core.AuthResult, bool, error) {
	start := time.Now()

	ids, err := c.route(core.CapTransparent)
	if err != nil {
		c.observe(core.CapTransparent, start, resultUnsupported)
		return nil, false, err
	}

	for _, id := range ids {
		var (
			result *core.AuthResult
			ok     bool
		)
		err := c.call(id, core.CapTransparent, func(b core.Backend) error {
			var err error
			result, ok, err = b.Transparent(ctx)
			return err
		})
		if err != nil {
			c.suppress(id, core.CapTransparent, err)
			continue
		}
		if !ok {
			continue
		}
		if result == nil {
			c.logger.Warn("backend accepted transparent login without a result, continuing",
				zap.String("driver", id),
			)
			continue
		}
		if result.Backend == "" {
			result.Backend = id
		}
		c.observe(core.CapTransparent, start, resultSuccess)
		return result, true, nil
	}

	c.observe(core.CapTransparent, start, resultRejected)
	return nil, false, nil
}

// AddUser creates the user on every add backend. Backend failures are
// suppressed; use AddUserReport to inspect them.
func (c *Cascade) AddUser(ctx context.Context, username string, creds core.Credentials) error {
	_, err := c.AddUserReport(ctx, username, creds)
	return err
}

// AddUserReport is AddUser returning the per-backend outcomes.
func (c *Cascade) AddUserReport(
	ctx context.Context,
	username string,
	creds core.Credentials,
) (Report, error) {
	start := time.Now()

	ids, err := c.route(core.CapAdd)
	if err != nil {
		c.observe(core.CapAdd, start, resultUnsupported)
		return nil, err
	}

	report := c.fanOut(core.CapAdd, ids, func(b core.Backend) error {
		return b.AddUser(ctx, username, creds)
	})
	c.observeReport(core.CapAdd, start, report)
	return report, nil
}

// UpdateUser updates (and possibly renames) the user on every update backend.
func (c *Cascade) UpdateUser(
	ctx context.Context,
	oldUsername, newUsername string,
	creds core.Credentials,
) error {
	_, err := c.UpdateUserReport(ctx, oldUsername, newUsername, creds)
	return err
}

// UpdateUserReport is UpdateUser returning the per-backend outcomes.
func (c *Cascade) UpdateUserReport(
	ctx context.Context,
	oldUsername, newUsername string,
	creds core.Credentials,
) (Report, error) {
	start := time.Now()

	ids, err := c.route(core.CapUpdate)
	if err != nil {
		c.observe(core.CapUpdate, start, resultUnsupported)
		return nil, err
	}

	report := c.fanOut(core.CapUpdate, ids, func(b core.Backend) error {
		return b.UpdateUser(ctx, oldUsername, newUsername, creds)
	})
	c.observeReport(core.CapUpdate, start, report)
	return report, nil
}

// RemoveUser deletes the user from every remove backend.
func (c *Cascade) RemoveUser(ctx context.Context, username string) error {
	_, err := c.RemoveUserReport(ctx, username)
	return err
}

// RemoveUserReport is RemoveUser returning the per-backend outcomes.
func (c *Cascade) RemoveUserReport(ctx context.Context, username string) (Report, error) {
	start := time.Now()

	ids, err := c.route(core.CapRemove)
	if err != nil {
		c.observe(core.CapRemove, start, resultUnsupported)
		return nil, err
	}

	report := c.fanOut(core.CapRemove, ids, func(b core.Backend) error {
		return b.RemoveUser(ctx, username)
	})
	c.observeReport(core.CapRemove, start, report)
	return report, nil
}

// ResetPassword resets the user's password on every resetpassword backend
// and returns the new password.
func (c *Cascade) ResetPassword(ctx context.Context, username string) (string, error) {
	password, _, err := c.ResetPasswordReport(ctx, username)
	return password, err
}

// ResetPasswordReport is ResetPassword returning the per-backend outcomes.
//
// Backends routed for both resetpassword and update are reset through
// UpdateUser with a single password shared by the whole cascade: the last one
// returned by a direct reset, or a freshly generated one when no direct reset
// succeeded. The returned password is empty when nothing produced one.
func (c *Cascade) ResetPasswordReport(
	ctx context.Context,
	username string,
) (string, Report, error) {
	start := time.Now()

	ids, err := c.route(core.CapResetPassword)
	if err != nil {
		c.observe(core.CapResetPassword, start, resultUnsupported)
		return "", nil, err
	}

	updaters := c.capabilities[core.CapUpdate]
	var direct, viaUpdate []string
	for _, id := range ids {
		if slices.Contains(updaters, id) {
			viaUpdate = append(viaUpdate, id)
		} else {
			direct = append(direct, id)
		}
	}

	var password string
	report := make(Report, 0, len(ids))
	for _, id := range direct {
		var newPassword string
		err := c.call(id, core.CapResetPassword, func(b core.Backend) error {
			var err error
			newPassword, err = b.ResetPassword(ctx, username)
			return err
		})
		report = append(report, Result{Backend: id, Capability: core.CapResetPassword, Err: err})
		if err != nil {
			c.suppress(id, core.CapResetPassword, err)
			continue
		}
		if newPassword != "" {
			password = newPassword
		}
	}

	if len(viaUpdate) > 0 {
		if password == "" {
			generated, err := c.generatePassword()
			if err != nil {
				c.observe(core.CapResetPassword, start, resultError)
				return "", report, fmt.Errorf("%w: %w", ErrPasswordGeneration, err)
			}
			c.recorder.RecordPasswordGenerated()
			password = generated
		}

		creds := core.Credentials{Password: password}
		report = append(report, c.fanOut(core.CapUpdate, viaUpdate, func(b core.Backend) error {
			return b.UpdateUser(ctx, username, username, creds)
		})...)
	}

	c.observeReport(core.CapResetPassword, start, report)
	return password, report, nil
}

// ListUsers merges the listings of every list backend, keeping the first
// occurrence of each username. sort is passed to the backends; the merged
// result is not re-sorted.
func (c *Cascade) ListUsers(ctx context.Context, sort bool) ([]string, error) {
	start := time.Now()

	ids, err := c.route(core.CapList)
	if err != nil {
		c.observe(core.CapList, start, resultUnsupported)
		return nil, err
	}

	users := make([]string, 0)
	seen := make(map[string]struct{})
	report := c.fanOut(core.CapList, ids, func(b core.Backend) error {
		listed, err := b.ListUsers(ctx, sort)
		if err != nil {
			return err
		}
		for _, u := range listed {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			users = append(users, u)
		}
		return nil
	})
	c.observeReport(core.CapList, start, report)
	return users, nil
}

// UserExists checks the exists backends first and then falls back to the
// listings of the list backends.
func (c *Cascade) UserExists(ctx context.Context, username string) (bool, error) {
	start := time.Now()

	if _, err := c.route(core.CapExists, core.CapList); err != nil {
		c.observe(core.CapExists, start, resultUnsupported)
		return false, err
	}

	for _, id := range c.capabilities[core.CapExists] {
		var found bool
		err := c.call(id, core.CapExists, func(b core.Backend) error {
			var err error
			found, err = b.UserExists(ctx, username)
			return err
		})
		if err != nil {
			c.suppress(id, core.CapExists, err)
			continue
		}
		if found {
			c.observe(core.CapExists, start, resultSuccess)
			return true, nil
		}
	}

	for _, id := range c.capabilities[core.CapList] {
		var found bool
		err := c.call(id, core.CapList, func(b core.Backend) error {
			users, err := b.ListUsers(ctx, false)
			found = slices.Contains(users, username)
			return err
		})
		if err != nil {
			c.suppress(id, core.CapList, err)
			continue
		}
		if found {
			c.observe(core.CapExists, start, resultSuccess)
			return true, nil
		}
	}

	c.observe(core.CapExists, start, resultRejected)
	return false, nil
}
