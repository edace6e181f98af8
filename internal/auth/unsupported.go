package auth

import (
	"context"

	"github.com/go-authgate/authcascade/internal/core"
)

func (Unsupported) Authenticate(context.Context, string, string) (*Result, error) {
	return nil, core.ErrUnsupported
}

func (Unsupported) Transparent(context.Context) (*Result, bool, error) {
	return nil, false, core.ErrUnsupported
}

func (Unsupported) AddUser(context.Context, string, core.Credentials) error {
	return core.ErrUnsupported
}

func (Unsupported) UpdateUser(context.Context, string, string, core.Credentials) error {
	return core.ErrUnsupported
}

func (Unsupported) RemoveUser(context.Context, string) error {
	return core.ErrUnsupported
}

func (Unsupported) ResetPassword(context.Context, string) (string, error) {
	return "", core.ErrUnsupported
}

func (Unsupported) ListUsers(context.Context, bool) ([]string, error) {
	return nil, core.ErrUnsupported
}

func (Unsupported) UserExists(context.Context, string) (bool, error) {
	return false, core.ErrUnsupported
}
