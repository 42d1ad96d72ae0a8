package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context. It returns nil when
// the session middleware did not run; Session accessors tolerate nil.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// CurrentUser returns the authenticated user bound to the request session
// and the active tenant, zero when none is bound.
func CurrentUser(ctx context.Context) (userID, tenantID int64, ok bool) {
	sess := SessionFromContext(ctx)
	userID, ok = sess.UserID()
	if !ok {
		return 0, 0, false
	}
	return userID, sess.TenantID(), true
}
