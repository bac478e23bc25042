package flows

import (
	"context"

	"github.com/veldtma/authcoord/session"
)

// Service binds a Deps set so callers invoke operations as methods instead of
// threading Deps through every call site.
type Service struct {
	deps Deps
}

// NewService wires a Service over deps.
func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

func (s *Service) Login(ctx context.Context, email, password string) LoginResult {
	return RunLogin(ctx, email, password, s.deps)
}

func (s *Service) Register(ctx context.Context, input RegisterInput) LoginResult {
	return RunRegister(ctx, input, s.deps)
}

func (s *Service) Logout(ctx context.Context) LogoutResult {
	return RunLogout(ctx, s.deps)
}

func (s *Service) Refresh(ctx context.Context) RefreshResult {
	return RunRefresh(ctx, s.deps)
}

func (s *Service) Validate(ctx context.Context) ValidateResult {
	return RunValidate(ctx, s.deps)
}

func (s *Service) Link(ctx context.Context, profile session.ProviderProfile, providerToken string) LinkResult {
	return RunLink(ctx, profile, providerToken, s.deps)
}
