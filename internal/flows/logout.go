package flows

import "context"

// LogoutResult reports the server-notification outcome. Local logout
// proceeds regardless; NotifyErr is informational.
type LogoutResult struct {
	NotifyErr error
}

// RunLogout notifies the server best-effort. It never fails the local
// logout: an unreachable server must not keep a user signed in.
func RunLogout(ctx context.Context, deps Deps) LogoutResult {
	return LogoutResult{NotifyErr: deps.API.Logout(ctx, deps.CurrentCSRF())}
}
