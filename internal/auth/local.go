package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/authcascade/internal/core"
	"github.com/go-authgate/authcascade/internal/models"
	"github.com/go-authgate/authcascade/internal/store"
	"github.com/go-authgate/authcascade/internal/util"

	"golang.org/x/crypto/bcrypt"
)

var localCapabilities = capabilitySet{
	core.CapAuthenticate,
	core.CapAdd,
	core.CapUpdate,
	core.CapRemove,
	core.CapResetPassword,
	core.CapList,
	core.CapExists,
}

var _ core.Backend = (*LocalAuthProvider)(nil)

// LocalAuthProvider handles local database authentication
type LocalAuthProvider struct {
	Unsupported

	store          *store.Store
	bcryptCost     int
	passwordLength int
}

// LocalOption configures a LocalAuthProvider
type LocalOption func(*LocalAuthProvider)

// WithBcryptCost sets the bcrypt work factor for new hashes
func WithBcryptCost(cost int) LocalOption {
	return func(p *LocalAuthProvider) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			p.bcryptCost = cost
		}
	}
}

// WithPasswordLength sets the length of passwords generated by ResetPassword
func WithPasswordLength(n int) LocalOption {
	return func(p *LocalAuthProvider) {
		if n > 0 {
			p.passwordLength = n
		}
	}
}

// NewLocalAuthProvider creates a new local authentication provider
func NewLocalAuthProvider(s *store.Store, opts ...LocalOption) *LocalAuthProvider {
	p := &LocalAuthProvider{
		store:          s,
		bcryptCost:     bcrypt.DefaultCost,
		passwordLength: 16,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns provider name for logging
func (p *LocalAuthProvider) Name() string {
	return DriverLocal
}

func (p *LocalAuthProvider) Supports(c core.Capability) bool {
	return localCapabilities.Supports(c)
}

// Authenticate verifies credentials against local database
func (p *LocalAuthProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*Result, error) {
	user, err := p.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	// Users without a password can never log in locally
	if !user.HasPassword() {
		return nil, core.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash),
		[]byte(password),
	); err != nil {
		return nil, core.ErrInvalidCredentials
	}

	return &Result{
		Username:   user.Username,
		ExternalID: user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		Backend:    DriverLocal,
		Success:    true,
	}, nil
}

func (p *LocalAuthProvider) AddUser(
	ctx context.Context,
	username string,
	creds core.Credentials,
) error {
	if username == "" {
		return ErrEmptyUsername
	}

	user := &models.User{
		Username: username,
		Email:    creds.Email,
		FullName: creds.FullName,
	}
	if creds.Password != "" {
		hash, err := p.hash(creds.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}

	if err := p.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUsernameConflict) {
			return core.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (p *LocalAuthProvider) UpdateUser(
	ctx context.Context,
	oldUsername, newUsername string,
	creds core.Credentials,
) error {
	user, err := p.lookup(ctx, oldUsername)
	if err != nil {
		return err
	}

	if creds.Email != "" {
		user.Email = creds.Email
	}
	if creds.FullName != "" {
		user.FullName = creds.FullName
	}
	if creds.Password != "" {
		hash, err := p.hash(creds.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}

	if err := p.store.UpdateUser(ctx, user, newUsername); err != nil {
		if errors.Is(err, store.ErrUsernameConflict) {
			return core.ErrUserExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (p *LocalAuthProvider) RemoveUser(ctx context.Context, username string) error {
	err := p.store.DeleteUserByUsername(ctx, username)
	if errors.Is(err, store.ErrRecordNotFound) {
		return core.ErrUserNotFound
	}
	return err
}

// ResetPassword stores a freshly generated password and returns it
func (p *LocalAuthProvider) ResetPassword(ctx context.Context, username string) (string, error) {
	user, err := p.lookup(ctx, username)
	if err != nil {
		return "", err
	}

	password, err := util.GenerateRandomPassword(p.passwordLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := p.hash(password)
	if err != nil {
		return "", err
	}
	user.PasswordHash = hash

	if err := p.store.UpdateUser(ctx, user, user.Username); err != nil {
		return "", fmt.Errorf("failed to store password: %w", err)
	}
	return password, nil
}

func (p *LocalAuthProvider) ListUsers(ctx context.Context, sort bool) ([]string, error) {
	return p.store.ListUsernames(ctx, sort)
}

func (p *LocalAuthProvider) UserExists(ctx context.Context, username string) (bool, error) {
	return p.store.UsernameExists(ctx, username)
}

func (p *LocalAuthProvider) lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := p.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (p *LocalAuthProvider) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
