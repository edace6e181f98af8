package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/go-authgate/authcascade/internal/core"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// startRedisContainer runs a throwaway Redis server and returns a client for it
func startRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	// Skip if running short tests or Docker is not available
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	// Recover from panic if Docker is not available
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("Skipping Redis test: Docker not available (panic: %v)", r)
		}
	}()

	ctx := context.Background()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("Skipping Redis test: Docker not available (%v)", err)
	}
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() {
		_ = client.Close()
	})
	require.NoError(t, client.Ping(ctx).Err())

	return client
}

// newRedisProvider namespaces all keys under a random prefix so subtests
// sharing one server stay isolated
func newRedisProvider(client redis.UniversalClient) *RedisAuthProvider {
	p := NewRedisAuthProvider(client, "authcascade-test:"+uuid.New().String()+":")
	p.bcryptCost = bcrypt.MinCost
	return p
}

// scriptedHook answers the named commands without reaching a server: a nil
// error succeeds with an integer reply of 1
type scriptedHook map[string]error

func (h scriptedHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h scriptedHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h scriptedHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err, ok := h[cmd.Name()]
		if !ok {
			return next(ctx, cmd)
		}
		if err != nil {
			cmd.SetErr(err)
			return err
		}
		if c, ok := cmd.(*redis.IntCmd); ok {
			c.SetVal(1)
		}
		return nil
	}
}

func TestRedisAuthProvider_Supports(t *testing.T) {
	p := NewRedisAuthProvider(nil, "")

	assert.True(t, p.Supports(core.CapAuthenticate))
	assert.True(t, p.Supports(core.CapUpdate))
	assert.False(t, p.Supports(core.CapResetPassword))
	assert.False(t, p.Supports(core.CapTransparent))
	assert.Equal(t, "x:user:alice", (&RedisAuthProvider{prefix: "x:"}).userKey("alice"))
}

func TestRedisAuthProvider_AddUser_RollbackErrors(t *testing.T) {
	ctx := context.Background()
	hsetErr := errors.New("OOM command not allowed")
	sremErr := errors.New("connection reset by peer")

	t.Run("rollback succeeds", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		t.Cleanup(func() { _ = client.Close() })
		client.AddHook(scriptedHook{"sadd": nil, "hset": hsetErr, "srem": nil})

		err := newRedisProvider(client).AddUser(ctx, "alice", core.Credentials{Email: "a@example.com"})
		assert.ErrorIs(t, err, hsetErr)
		assert.NotContains(t, err.Error(), "roll back")
	})

	t.Run("rollback fails", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		t.Cleanup(func() { _ = client.Close() })
		client.AddHook(scriptedHook{"sadd": nil, "hset": hsetErr, "srem": sremErr})

		err := newRedisProvider(client).AddUser(ctx, "alice", core.Credentials{Email: "a@example.com"})
		assert.ErrorIs(t, err, hsetErr)
		assert.ErrorIs(t, err, sremErr)
		assert.Contains(t, err.Error(), "failed to roll back registration")
	})
}

// TestRedisAuthProviderWithRedis runs the driver against a real Redis server
func TestRedisAuthProviderWithRedis(t *testing.T) {
	client := startRedisContainer(t)
	ctx := context.Background()

	t.Run("Lifecycle", func(t *testing.T) {
		p := newRedisProvider(client)

		require.NoError(t, p.AddUser(ctx, "alice", core.Credentials{
			Password: "wonderland",
			Email:    "alice@example.com",
		}))
		assert.ErrorIs(t, p.AddUser(ctx, "alice", core.Credentials{}), core.ErrUserExists)

		result, err := p.Authenticate(ctx, "alice", "wonderland")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", result.Email)
		assert.Equal(t, DriverRedis, result.Backend)

		_, err = p.Authenticate(ctx, "alice", "nope")
		assert.ErrorIs(t, err, core.ErrInvalidCredentials)

		_, err = p.Authenticate(ctx, "nobody", "x")
		assert.ErrorIs(t, err, core.ErrInvalidCredentials)

		require.NoError(t, p.AddUser(ctx, "bob", core.Credentials{}))
		users, err := p.ListUsers(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, users)

		require.NoError(t, p.RemoveUser(ctx, "bob"))
		assert.ErrorIs(t, p.RemoveUser(ctx, "bob"), core.ErrUserNotFound)
		assert.ErrorIs(t,
			p.UpdateUser(ctx, "bob", "bob", core.Credentials{Password: "x"}),
			core.ErrUserNotFound,
		)
	})

	t.Run("UpdateUserRenameMerge", func(t *testing.T) {
		p := newRedisProvider(client)

		require.NoError(t, p.AddUser(ctx, "alice", core.Credentials{
			Password: "wonderland",
			Email:    "alice@example.com",
			FullName: "Alice Liddell",
		}))

		require.NoError(t, p.UpdateUser(ctx, "alice", "alicia", core.Credentials{Password: "new"}))

		exists, err := p.UserExists(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, exists)
		n, err := client.Exists(ctx, p.userKey("alice")).Result()
		require.NoError(t, err)
		assert.Zero(t, n, "old hash is deleted")

		_, err = p.Authenticate(ctx, "alicia", "wonderland")
		assert.ErrorIs(t, err, core.ErrInvalidCredentials, "new password replaces the old one")

		result, err := p.Authenticate(ctx, "alicia", "new")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", result.Email, "rename keeps untouched fields")
		assert.Equal(t, "Alice Liddell", result.FullName, "rename keeps untouched fields")

		users, err := p.ListUsers(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"alicia"}, users)
	})

	t.Run("UpdateUserInPlace", func(t *testing.T) {
		p := newRedisProvider(client)

		require.NoError(t, p.AddUser(ctx, "alice", core.Credentials{
			Password: "wonderland",
			Email:    "alice@example.com",
		}))
		require.NoError(t, p.UpdateUser(ctx, "alice", "", core.Credentials{FullName: "Alice"}))

		result, err := p.Authenticate(ctx, "alice", "wonderland")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", result.Email)
		assert.Equal(t, "Alice", result.FullName)
	})

	t.Run("UpdateUserRenameConflict", func(t *testing.T) {
		p := newRedisProvider(client)

		require.NoError(t, p.AddUser(ctx, "alice", core.Credentials{Password: "a"}))
		require.NoError(t, p.AddUser(ctx, "bob", core.Credentials{Password: "b"}))

		err := p.UpdateUser(ctx, "alice", "bob", core.Credentials{})
		assert.ErrorIs(t, err, core.ErrUserExists)

		_, err = p.Authenticate(ctx, "bob", "b")
		assert.NoError(t, err, "conflicting rename leaves the target untouched")
	})

	t.Run("AddUserRollback", func(t *testing.T) {
		p := newRedisProvider(client)

		// A non-hash value under the user's key makes HSET fail after SADD
		require.NoError(t, client.Set(ctx, p.userKey("alice"), "not a hash", 0).Err())

		err := p.AddUser(ctx, "alice", core.Credentials{Password: "wonderland"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store user")
		assert.NotContains(t, err.Error(), "roll back")

		exists, err := p.UserExists(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, exists, "registration is rolled back")

		require.NoError(t, client.Del(ctx, p.userKey("alice")).Err())
		require.NoError(t, p.AddUser(ctx, "alice", core.Credentials{Password: "wonderland"}))
	})

	t.Run("RemoveUnknownUser", func(t *testing.T) {
		p := newRedisProvider(client)
		require.NoError(t, p.AddUser(ctx, "alice", core.Credentials{}))

		assert.ErrorIs(t, p.RemoveUser(ctx, "nobody"), core.ErrUserNotFound)

		users, err := p.ListUsers(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, users)
	})
}
