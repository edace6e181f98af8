package util

import "context"

type contextKey string

const remoteUserKey contextKey = "remote_user"

// WithRemoteUser stores the username asserted by a trusted proxy in ctx.
func WithRemoteUser(ctx context.Context, username string) context.Context {
	if username == "" {
		return ctx
	}
	return context.WithValue(ctx, remoteUserKey, username)
}

// RemoteUserFromContext returns the proxy-asserted username, if any.
func RemoteUserFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(remoteUserKey).(string)
	return username, ok && username != ""
}
