package core

import "context"

// Capability names an operation category a backend may support.
type Capability string

const (
	CapAuthenticate  Capability = "authenticate"
	CapTransparent   Capability = "transparent"
	CapAdd           Capability = "add"
	CapUpdate        Capability = "update"
	CapRemove        Capability = "remove"
	CapResetPassword Capability = "resetpassword"
	CapList          Capability = "list"
	CapExists        Capability = "exists"
)

// Capabilities lists every capability recognized when building a routing table.
var Capabilities = []Capability{
	CapAuthenticate,
	CapTransparent,
	CapAdd,
	CapUpdate,
	CapRemove,
	CapResetPassword,
	CapList,
	CapExists,
}

// ParseCapability maps a case-sensitive name to a known capability.
func ParseCapability(name string) (Capability, bool) {
	for _, c := range Capabilities {
		if string(c) == name {
			return c, true
		}
	}
	return Capability(name), false
}

// AuthResult holds the outcome of an authentication attempt.
type AuthResult struct {
	Username   string
	ExternalID string // External user ID (e.g., LDAP DN, API user ID)
	Email      string // Optional
	FullName   string // Optional
	Backend    string // Driver that accepted the credentials
	Success    bool
}

// Credentials carries the user attributes a backend stores.
// On update an empty field means "leave unchanged".
type Credentials struct {
	Password string
	Email    string
	FullName string
}

// Backend is the interface that authentication drivers must implement.
//
// Supports is queried once when a routing table is built. Methods belonging
// to a capability the backend does not support return ErrUnsupported.
type Backend interface {
	Name() string
	Supports(c Capability) bool

	Authenticate(ctx context.Context, username, password string) (*AuthResult, error)
	// Transparent authenticates from ambient request data (e.g., a trusted
	// proxy header carried in ctx). ok is false when no identity was found.
	Transparent(ctx context.Context) (result *AuthResult, ok bool, err error)

	AddUser(ctx context.Context, username string, creds Credentials) error
	UpdateUser(ctx context.Context, oldUsername, newUsername string, creds Credentials) error
	RemoveUser(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, username string) (string, error)
	ListUsers(ctx context.Context, sort bool) ([]string, error)
	UserExists(ctx context.Context, username string) (bool, error)
}
