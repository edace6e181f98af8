package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-authgate/authcascade/internal/core"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// redisCapabilities has update but no resetpassword: a cascade resets these
// users by generating a password and updating it.
var redisCapabilities = capabilitySet{
	core.CapAuthenticate,
	core.CapAdd,
	core.CapUpdate,
	core.CapRemove,
	core.CapList,
	core.CapExists,
}

// Hash fields of a user record
const (
	fieldPasswordHash = "password_hash"
	fieldEmail        = "email"
	fieldFullName     = "full_name"
)

var _ core.Backend = (*RedisAuthProvider)(nil)

// RedisAuthProvider keeps users in Redis: one hash per user plus a set of
// all usernames.
type RedisAuthProvider struct {
	Unsupported

	client     redis.UniversalClient
	prefix     string
	bcryptCost int
}

// NewRedisAuthProvider creates a Redis-backed provider. Keys are namespaced
// with prefix (e.g. "authcascade:").
func NewRedisAuthProvider(client redis.UniversalClient, prefix string) *RedisAuthProvider {
	return &RedisAuthProvider{
		client:     client,
		prefix:     prefix,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Name returns provider name for logging
func (p *RedisAuthProvider) Name() string {
	return DriverRedis
}

func (p *RedisAuthProvider) Supports(c core.Capability) bool {
	return redisCapabilities.Supports(c)
}

func (p *RedisAuthProvider) userKey(username string) string {
	return p.prefix + "user:" + username
}

func (p *RedisAuthProvider) usersKey() string {
	return p.prefix + "users"
}

func (p *RedisAuthProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*Result, error) {
	fields, err := p.client.HGetAll(ctx, p.userKey(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	hash := fields[fieldPasswordHash]
	if hash == "" {
		return nil, core.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, core.ErrInvalidCredentials
	}

	return &Result{
		Username: username,
		Email:    fields[fieldEmail],
		FullName: fields[fieldFullName],
		Backend:  DriverRedis,
		Success:  true,
	}, nil
}

func (p *RedisAuthProvider) AddUser(
	ctx context.Context,
	username string,
	creds core.Credentials,
) error {
	if username == "" {
		return ErrEmptyUsername
	}

	values, err := p.values(creds)
	if err != nil {
		return err
	}

	added, err := p.client.SAdd(ctx, p.usersKey(), username).Result()
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	if added == 0 {
		return core.ErrUserExists
	}

	if len(values) == 0 {
		return nil
	}
	if err := p.client.HSet(ctx, p.userKey(username), values).Err(); err != nil {
		storeErr := fmt.Errorf("failed to store user: %w", err)
		// Roll back the registration so a retry can succeed
		if rbErr := p.client.SRem(ctx, p.usersKey(), username).Err(); rbErr != nil {
			return errors.Join(storeErr, fmt.Errorf("failed to roll back registration: %w", rbErr))
		}
		return storeErr
	}
	return nil
}

func (p *RedisAuthProvider) UpdateUser(
	ctx context.Context,
	oldUsername, newUsername string,
	creds core.Credentials,
) error {
	exists, err := p.UserExists(ctx, oldUsername)
	if err != nil {
		return err
	}
	if !exists {
		return core.ErrUserNotFound
	}

	values, err := p.values(creds)
	if err != nil {
		return err
	}

	username := oldUsername
	if newUsername != "" && newUsername != oldUsername {
		taken, err := p.UserExists(ctx, newUsername)
		if err != nil {
			return err
		}
		if taken {
			return core.ErrUserExists
		}
		username = newUsername
	}

	if username != oldUsername {
		// Carry the existing record over to the new key
		current, err := p.client.HGetAll(ctx, p.userKey(oldUsername)).Result()
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		for field, value := range current {
			if _, changed := values[field]; !changed {
				values[field] = value
			}
		}
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if username != oldUsername {
			pipe.SRem(ctx, p.usersKey(), oldUsername)
			pipe.SAdd(ctx, p.usersKey(), username)
			pipe.Del(ctx, p.userKey(oldUsername))
		}
		if len(values) > 0 {
			pipe.HSet(ctx, p.userKey(username), values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (p *RedisAuthProvider) RemoveUser(ctx context.Context, username string) error {
	var removed *redis.IntCmd
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.SRem(ctx, p.usersKey(), username)
		pipe.Del(ctx, p.userKey(username))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	if removed.Val() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// ListUsers returns the registered usernames. Redis sets are unordered, so
// the unsorted order is arbitrary.
func (p *RedisAuthProvider) ListUsers(ctx context.Context, sort bool) ([]string, error) {
	users, err := p.client.SMembers(ctx, p.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if sort {
		slices.Sort(users)
	}
	return users, nil
}

func (p *RedisAuthProvider) UserExists(ctx context.Context, username string) (bool, error) {
	exists, err := p.client.SIsMember(ctx, p.usersKey(), username).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// values converts the non-empty credential fields into hash values.
func (p *RedisAuthProvider) values(creds core.Credentials) (map[string]any, error) {
	values := make(map[string]any)
	if creds.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), p.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		values[fieldPasswordHash] = string(hash)
	}
	if creds.Email != "" {
		values[fieldEmail] = creds.Email
	}
	if creds.FullName != "" {
		values[fieldFullName] = creds.FullName
	}
	return values, nil
}
