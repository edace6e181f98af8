package cascade

import (
	"context"
	"errors"
	"testing"

	"github.com/go-authgate/authcascade/internal/core"
	"github.com/go-authgate/authcascade/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errBackendDown = errors.New("backend down")

func accepted(username string) *core.AuthResult {
	return &core.AuthResult{Username: username, Success: true}
}

func TestAuthenticate_FirstSuccessWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAuthenticate, core.CapUpdate)
	b := newBackend(ctrl, core.CapAuthenticate, core.CapAdd)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})
	ctx := t.Context()

	a.EXPECT().Authenticate(ctx, "alice", "secret").Return(nil, core.ErrInvalidCredentials)
	b.EXPECT().Authenticate(ctx, "alice", "secret").Return(accepted("alice"), nil)

	result, err := c.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, "b", result.Backend)
}

func TestAuthenticate_StopsAtFirstSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAuthenticate)
	b := newBackend(ctrl, core.CapAuthenticate)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().Authenticate(gomock.Any(), "alice", "secret").
		Return(&core.AuthResult{Username: "alice", Backend: "ldap", Success: true}, nil)

	result, err := c.Authenticate(t.Context(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ldap", result.Backend, "a backend-provided name is kept")
}

func TestAuthenticate_BadLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAuthenticate, core.CapUpdate)
	b := newBackend(ctrl, core.CapAuthenticate, core.CapAdd)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().Authenticate(gomock.Any(), "alice", "wrong").Return(nil, core.ErrInvalidCredentials)
	b.EXPECT().Authenticate(gomock.Any(), "alice", "wrong").
		Return(&core.AuthResult{Username: "alice", Success: false}, nil)

	result, err := c.Authenticate(t.Context(), "alice", "wrong")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrBadLogin)
	assert.Equal(t, ErrBadLogin, err, "pure rejections carry no fault detail")
}

func TestAuthenticate_BackendFaultsAreJoined(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAuthenticate)
	b := newBackend(ctrl, core.CapAuthenticate)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().Authenticate(gomock.Any(), "alice", "secret").Return(nil, errBackendDown)
	b.EXPECT().Authenticate(gomock.Any(), "alice", "secret").Return(nil, core.ErrInvalidCredentials)

	_, err := c.Authenticate(t.Context(), "alice", "secret")
	assert.ErrorIs(t, err, ErrBadLogin)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Contains(t, err.Error(), "a: backend down")
}

func TestAuthenticate_NoBackends(t *testing.T) {
	c := newCascade(t, Config{Drivers: []Driver{}})

	_, err := c.Authenticate(t.Context(), "alice", "secret")
	assert.ErrorIs(t, err, ErrBadLogin)
}

func TestTransparent(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapTransparent)
	b := newBackend(ctrl, core.CapTransparent)
	d := newBackend(ctrl, core.CapTransparent)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}, {"d", d}}})

	a.EXPECT().Transparent(gomock.Any()).Return(nil, false, errBackendDown)
	b.EXPECT().Transparent(gomock.Any()).Return(accepted("alice"), true, nil)

	result, ok, err := c.Transparent(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, "b", result.Backend)
}

func TestTransparent_NoBackendIdentifiesCaller(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapTransparent)
	b := newBackend(ctrl, core.CapTransparent)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().Transparent(gomock.Any()).Return(nil, false, nil)
	b.EXPECT().Transparent(gomock.Any()).Return(nil, false, errBackendDown)

	result, ok, err := c.Transparent(t.Context())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, result)
}

func TestTransparent_AcceptedWithoutResultIsAMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapTransparent)
	b := newBackend(ctrl, core.CapTransparent)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().Transparent(gomock.Any()).Return(nil, true, nil)
	b.EXPECT().Transparent(gomock.Any()).Return(accepted("alice"), true, nil)

	result, ok, err := c.Transparent(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, result)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, "b", result.Backend)
}

func TestTransparent_OnlyAcceptedWithoutResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapTransparent)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}}})

	a.EXPECT().Transparent(gomock.Any()).Return(nil, true, nil)

	result, ok, err := c.Transparent(t.Context())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, result)
}

func TestTransparent_Unsupported(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAuthenticate)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}}})

	_, ok, err := c.Transparent(t.Context())
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrUnsupported)
}

func TestAddUser_FailureDoesNotStopLaterBackends(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAdd)
	b := newBackend(ctrl, core.CapAdd)
	d := newBackend(ctrl, core.CapAdd)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}, {"d", d}}})

	creds := core.Credentials{Password: "secret", Email: "alice@example.com"}
	gomock.InOrder(
		a.EXPECT().AddUser(gomock.Any(), "alice", creds).Return(errBackendDown),
		b.EXPECT().AddUser(gomock.Any(), "alice", creds).Return(core.ErrUserExists),
		d.EXPECT().AddUser(gomock.Any(), "alice", creds).Return(nil),
	)

	assert.NoError(t, c.AddUser(t.Context(), "alice", creds))
}

func TestAddUserReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAdd)
	b := newBackend(ctrl, core.CapAdd)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().AddUser(gomock.Any(), "alice", gomock.Any()).Return(errBackendDown)
	b.EXPECT().AddUser(gomock.Any(), "alice", gomock.Any()).Return(nil)

	report, err := c.AddUserReport(t.Context(), "alice", core.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, report.Succeeded())
	assert.Equal(t, []string{"a"}, report.Failed())
	assert.ErrorIs(t, report.Err(), errBackendDown)
}

func TestAddUser_AllBackendsFailStillSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAdd)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}}})

	a.EXPECT().AddUser(gomock.Any(), "alice", gomock.Any()).Return(errBackendDown)

	assert.NoError(t, c.AddUser(t.Context(), "alice", core.Credentials{}))
}

func TestFanOut_Unsupported(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAuthenticate)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}}})
	ctx := t.Context()

	assert.ErrorIs(t, c.AddUser(ctx, "alice", core.Credentials{}), core.ErrUnsupported)
	assert.ErrorIs(t, c.UpdateUser(ctx, "alice", "alice", core.Credentials{}), core.ErrUnsupported)
	assert.ErrorIs(t, c.RemoveUser(ctx, "alice"), core.ErrUnsupported)
	_, err := c.ResetPassword(ctx, "alice")
	assert.ErrorIs(t, err, core.ErrUnsupported)
	_, err = c.ListUsers(ctx, false)
	assert.ErrorIs(t, err, core.ErrUnsupported)
	_, err = c.UserExists(ctx, "alice")
	assert.ErrorIs(t, err, core.ErrUnsupported)
}

func TestUpdateUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapUpdate)
	b := newBackend(ctrl, core.CapUpdate)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	creds := core.Credentials{FullName: "Alicia"}
	a.EXPECT().UpdateUser(gomock.Any(), "alice", "alicia", creds).Return(core.ErrUserNotFound)
	b.EXPECT().UpdateUser(gomock.Any(), "alice", "alicia", creds).Return(nil)

	report, err := c.UpdateUserReport(t.Context(), "alice", "alicia", creds)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, report.Succeeded())
}

func TestRemoveUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapRemove)
	b := newBackend(ctrl, core.CapRemove)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().RemoveUser(gomock.Any(), "alice").Return(errBackendDown)
	b.EXPECT().RemoveUser(gomock.Any(), "alice").Return(nil)

	assert.NoError(t, c.RemoveUser(t.Context(), "alice"))
}

// An update-only backend is reset via update only when an override routes it
// under resetpassword; default routing never lists it there.
func TestResetPassword_ViaUpdateUsesGeneratedPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapUpdate)
	b := newBackend(ctrl, core.CapUpdate, core.CapResetPassword)
	c := newCascade(t,
		Config{
			Drivers: []Driver{{"a", a}, {"b", b}},
			Capabilities: map[core.Capability][]string{
				core.CapResetPassword: {"a", "b"},
			},
		},
		WithPasswordGenerator(func() (string, error) { return "generated-pw", nil }),
	)

	want := core.Credentials{Password: "generated-pw"}
	a.EXPECT().UpdateUser(gomock.Any(), "alice", "alice", want).Return(nil)
	b.EXPECT().UpdateUser(gomock.Any(), "alice", "alice", want).Return(nil)
	// No ResetPassword expectation: a direct reset on either backend fails the test.

	password, err := c.ResetPassword(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "generated-pw", password)
}

func TestResetPassword_DefaultRoutingSkipsDirectResetOnUpdaters(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapUpdate)
	b := newBackend(ctrl, core.CapUpdate, core.CapResetPassword)
	c := newCascade(t,
		Config{Drivers: []Driver{{"a", a}, {"b", b}}},
		WithPasswordGenerator(func() (string, error) { return "generated-pw", nil }),
	)

	b.EXPECT().UpdateUser(gomock.Any(), "alice", "alice", core.Credentials{Password: "generated-pw"}).
		Return(nil)

	password, report, err := c.ResetPasswordReport(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "generated-pw", password)
	require.Len(t, report, 1)
	assert.Equal(t, "b", report[0].Backend)
	assert.Equal(t, core.CapUpdate, report[0].Capability)
}

func TestResetPassword_DirectResetPasswordIsShared(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapResetPassword)
	b := newBackend(ctrl, core.CapResetPassword)
	d := newBackend(ctrl, core.CapResetPassword, core.CapUpdate)
	c := newCascade(t,
		Config{Drivers: []Driver{{"a", a}, {"b", b}, {"d", d}}},
		WithPasswordGenerator(func() (string, error) {
			t.Fatal("generator must not be called when a direct reset produced a password")
			return "", nil
		}),
	)

	a.EXPECT().ResetPassword(gomock.Any(), "alice").Return("first", nil)
	b.EXPECT().ResetPassword(gomock.Any(), "alice").Return("second", nil)
	d.EXPECT().UpdateUser(gomock.Any(), "alice", "alice", core.Credentials{Password: "second"}).
		Return(nil)

	password, err := c.ResetPassword(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "second", password, "the last direct reset wins")
}

func TestResetPassword_FailedDirectResetsFallBackToGenerator(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapResetPassword)
	b := newBackend(ctrl, core.CapResetPassword, core.CapUpdate)
	c := newCascade(t,
		Config{Drivers: []Driver{{"a", a}, {"b", b}}},
		WithPasswordGenerator(func() (string, error) { return "generated-pw", nil }),
	)

	a.EXPECT().ResetPassword(gomock.Any(), "alice").Return("", errBackendDown)
	b.EXPECT().UpdateUser(gomock.Any(), "alice", "alice", core.Credentials{Password: "generated-pw"}).
		Return(nil)

	password, report, err := c.ResetPasswordReport(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "generated-pw", password)
	assert.Equal(t, []string{"a"}, report.Failed())
	assert.Equal(t, []string{"b"}, report.Succeeded())
}

func TestResetPassword_DirectOnlyFailuresReturnEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapResetPassword)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}}})

	a.EXPECT().ResetPassword(gomock.Any(), "alice").Return("", errBackendDown)

	password, err := c.ResetPassword(t.Context(), "alice")
	assert.NoError(t, err)
	assert.Empty(t, password)
}

func TestResetPassword_GeneratorFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapResetPassword, core.CapUpdate)
	c := newCascade(t,
		Config{Drivers: []Driver{{"a", a}}},
		WithPasswordGenerator(func() (string, error) { return "", errBackendDown }),
	)

	_, err := c.ResetPassword(t.Context(), "alice")
	assert.ErrorIs(t, err, ErrPasswordGeneration)
	assert.ErrorIs(t, err, errBackendDown)
}

func TestResetPassword_DefaultGenerator(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapResetPassword, core.CapUpdate)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}}})

	var got core.Credentials
	a.EXPECT().UpdateUser(gomock.Any(), "alice", "alice", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, creds core.Credentials) error {
			got = creds
			return nil
		})

	password, err := c.ResetPassword(t.Context(), "alice")
	require.NoError(t, err)
	assert.Len(t, password, DefaultPasswordLength)
	assert.Equal(t, password, got.Password)
	assert.Empty(t, got.Email)
	assert.Empty(t, got.FullName)
}

func TestListUsers_Deduplicates(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapList)
	b := newBackend(ctrl, core.CapList)
	d := newBackend(ctrl, core.CapList)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}, {"d", d}}})

	a.EXPECT().ListUsers(gomock.Any(), false).Return([]string{"carol", "alice"}, nil)
	b.EXPECT().ListUsers(gomock.Any(), false).Return(nil, errBackendDown)
	d.EXPECT().ListUsers(gomock.Any(), false).Return([]string{"alice", "bob", "alice"}, nil)

	users, err := c.ListUsers(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "alice", "bob"}, users)
}

func TestListUsers_SortIsPassedThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapList)
	b := newBackend(ctrl, core.CapList)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().ListUsers(gomock.Any(), true).Return([]string{"bob", "dave"}, nil)
	b.EXPECT().ListUsers(gomock.Any(), true).Return([]string{"alice", "bob"}, nil)

	users, err := c.ListUsers(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "dave", "alice"}, users, "merged result is not re-sorted")
}

func TestListUsers_AllFailReturnsEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapList)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}}})

	a.EXPECT().ListUsers(gomock.Any(), false).Return(nil, errBackendDown)

	users, err := c.ListUsers(t.Context(), false)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUserExists_FallsBackToList(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapList)
	b := newBackend(ctrl, core.CapList)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})
	ctx := t.Context()

	a.EXPECT().ListUsers(gomock.Any(), false).Return([]string{"alice"}, nil).Times(2)
	b.EXPECT().ListUsers(gomock.Any(), false).Return([]string{"bob"}, nil).Times(2)

	exists, err := c.UserExists(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.UserExists(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserExists_ExistsTierFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapExists)
	b := newBackend(ctrl, core.CapExists, core.CapList)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().UserExists(gomock.Any(), "alice").Return(false, errBackendDown)
	b.EXPECT().UserExists(gomock.Any(), "alice").Return(true, nil)

	exists, err := c.UserExists(t.Context(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserExists_ListFailureIsSuppressed(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapExists)
	b := newBackend(ctrl, core.CapList)
	c := newCascade(t, Config{Drivers: []Driver{{"a", a}, {"b", b}}})

	a.EXPECT().UserExists(gomock.Any(), "alice").Return(false, nil)
	b.EXPECT().ListUsers(gomock.Any(), false).Return(nil, errBackendDown)

	exists, err := c.UserExists(t.Context(), "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUnknownBackendInOverride(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAdd)
	c := newCascade(t, Config{
		Drivers:      []Driver{{"a", a}},
		Capabilities: map[core.Capability][]string{core.CapAdd: {"ghost", "a"}},
	})

	a.EXPECT().AddUser(gomock.Any(), "alice", gomock.Any()).Return(nil)

	report, err := c.AddUserReport(t.Context(), "alice", core.Credentials{})
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.ErrorIs(t, report[0].Err, ErrUnknownBackend)
	assert.Equal(t, []string{"a"}, report.Succeeded())
}

func TestNestedCascade(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapAuthenticate, core.CapList)
	b := newBackend(ctrl, core.CapList)

	inner := newCascade(t, Config{Drivers: []Driver{{"a", a}}})
	outer := newCascade(t, Config{Drivers: []Driver{{"inner", inner}, {"b", b}}})

	assert.Equal(t, []string{"inner"}, outer.Capabilities()[core.CapAuthenticate])
	assert.Equal(t, []string{"inner", "b"}, outer.Capabilities()[core.CapList])
	assert.False(t, outer.HasCapability(core.CapAdd))

	a.EXPECT().Authenticate(gomock.Any(), "alice", "secret").Return(accepted("alice"), nil)
	result, err := outer.Authenticate(t.Context(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a", result.Backend, "the innermost driver id is reported")

	a.EXPECT().Authenticate(gomock.Any(), "alice", "wrong").Return(nil, core.ErrInvalidCredentials)
	_, err = outer.Authenticate(t.Context(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrBadLogin)
}

func TestRecorder(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newBackend(ctrl, core.CapResetPassword, core.CapUpdate)
	rec := mocks.NewMockRecorder(ctrl)
	c := newCascade(t,
		Config{Drivers: []Driver{{"a", a}}},
		WithRecorder(rec),
		WithPasswordGenerator(func() (string, error) { return "pw", nil }),
	)

	a.EXPECT().UpdateUser(gomock.Any(), "alice", "alice", core.Credentials{Password: "pw"}).
		Return(errBackendDown)
	rec.EXPECT().RecordPasswordGenerated()
	rec.EXPECT().RecordBackendCall("a", core.CapUpdate, false, gomock.Any())
	rec.EXPECT().RecordDispatch(core.CapResetPassword, resultError, gomock.Any())

	_, err := c.ResetPassword(t.Context(), "alice")
	assert.NoError(t, err)
}
