package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/salesops/internal/config"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/utils"
)

// RoleApprover is the Authorizer role allowed to decide OKR approvals
const RoleApprover = "approver"

// AuthService validates Authorizer sessions. The client is created on first use
// because the redirect URL comes from the first request's protocol and host.
type AuthService struct {
	cfg *config.Config
	log *logger.Logger

	mu     sync.Mutex
	client *authorizer.AuthorizerClient
}

func NewAuthService(cfg *config.Config, baseLog *logger.Logger) *AuthService {
	return &AuthService{cfg: cfg, log: baseLog.With("service", "AuthService")}
}

// Enabled reports whether an Authorizer is configured
func (s *AuthService) Enabled() bool {
	return s.cfg.AuthEnabled()
}

// Init creates the Authorizer client on the first successful call.
// A failed attempt leaves no client, so the next request tries again.
func (s *AuthService) Init(ctx context.Context, requestProtocol, requestHost string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	if err := utils.PingAuthorizer(ctx, s.cfg.AuthzURL); err != nil {
		return fmt.Errorf("authorizer ping failed: %w", err)
	}

	redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
	s.log.Info("initializing authorizer", "url", s.cfg.AuthzURL, "clientId", s.cfg.AuthzClientID, "redirectUrl", redirectURL)

	client, err := authorizer.NewAuthorizerClient(s.cfg.AuthzClientID, s.cfg.AuthzURL, redirectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create authorizer client: %w", err)
	}
	s.client = client
	return nil
}

func (s *AuthService) currentClient() *authorizer.AuthorizerClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// ValidateSession checks a session cookie against the given roles and returns the session user
func (s *AuthService) ValidateSession(cookie string, roles []string) (*authorizer.User, error) {
	client := s.currentClient()
	if client == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("session is not valid")
	}
	return res.User, nil
}

// SessionApproverID maps a session user to a numeric approver id. The id is read
// from the user's app_data "approverId", falling back to a numeric user id.
func SessionApproverID(user *authorizer.User) (uint64, bool) {
	if user == nil {
		return 0, false
	}
	switch v := user.AppData["approverId"].(type) {
	case float64:
		if v > 0 && v == math.Trunc(v) {
			return uint64(v), true
		}
		return 0, false
	case string:
		return parseApproverID(v)
	}
	return parseApproverID(user.ID)
}

func parseApproverID(s string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
