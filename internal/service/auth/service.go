package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/database"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	internaljwt "github.com/GrupoCorban26/sgi-corban-sub000/internal/jwt"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

// TokenIssuer is the part of jwt.Issuer the service needs.
type TokenIssuer interface {
	CreateTokenWithRefresh(ctx context.Context, user internaljwt.User) (internaljwt.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (internaljwt.TokenResponse, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
	now    func() time.Time
	log    *zap.Logger
}

func New(db *database.Database, tokens TokenIssuer, log *zap.Logger) *Service {
	s := NewWithRepository(NewDynamoRepository(db), tokens, time.Now)
	if log != nil {
		s.log = log.Named("auth")
	}
	return s
}

func NewWithRepository(repo Repository, tokens TokenIssuer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		now:    now,
		log:    zap.NewNop(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Login(ctx context.Context, params LoginParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)
	if email == "" || password == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	agent, err := s.repo.FindAgentByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", err)
		}
		return AuthResult{}, newError(ErrorCodeInternal, "failed to fetch agent", err)
	}
	if agent.Status != model.AgentStatusActive {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "agent is disabled", nil)
	}
	if !internaljwt.ValidatePassword(agent.PasswordHash, password) {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	tokens, err := s.tokens.CreateTokenWithRefresh(ctx, internaljwt.User{
		ID:    agent.AgentID,
		Email: agent.Email,
		Roles: agent.Roles,
	})
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	agent.LastLoginAt = model.Timestamp(s.now())
	if err := s.repo.TouchLogin(ctx, agent.AgentID, agent.LastLoginAt); err != nil {
		s.log.Warn("record login failed", zap.String("agentId", agent.AgentID), zap.Error(err))
	}

	return AuthResult{Agent: agent, Tokens: tokens}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (internaljwt.TokenResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return internaljwt.TokenResponse{}, newError(ErrorCodeValidation, "refresh token is required", nil)
	}
	tokens, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, internaljwt.ErrRefreshNotFound) {
			return internaljwt.TokenResponse{}, newError(ErrorCodeUnauthorized, "refresh token is invalid or expired", err)
		}
		return internaljwt.TokenResponse{}, newError(ErrorCodeInternal, "failed to refresh token", err)
	}
	return tokens, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, strings.TrimSpace(refreshToken)); err != nil {
		return newError(ErrorCodeInternal, "failed to revoke refresh token", err)
	}
	return nil
}

func (s *Service) Me(ctx context.Context, auth authctx.Context) (model.AgentItem, error) {
	if !auth.Valid() {
		return model.AgentItem{}, newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}
	agent, err := s.repo.GetAgent(ctx, auth.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.AgentItem{}, newError(ErrorCodeNotFound, "agent not found", err)
		}
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to fetch agent", err)
	}
	return agent, nil
}

// CreateAgent registers a new agent. Only admins may call it; seed is set by
// the server bootstrap to create the first admin.
func (s *Service) CreateAgent(ctx context.Context, auth authctx.Context, params CreateAgentParams, seed bool) (model.AgentItem, error) {
	if !seed && !auth.HasRole(authctx.RoleAdmin) {
		return model.AgentItem{}, newError(ErrorCodeForbidden, "admin role required", nil)
	}

	email := normalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)
	password := strings.TrimSpace(params.Password)
	roles := authctx.RoleStrings(authctx.ParseRoles(params.Roles))
	if email == "" || name == "" || password == "" || len(roles) == 0 {
		return model.AgentItem{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.AgentItem{}, newError(ErrorCodeValidation, "invalid email", err)
	}

	hash, err := internaljwt.HashPassword(password)
	if err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to prepare agent", err)
	}

	agent := model.AgentItem{
		AgentID:      uuid.NewString(),
		Email:        email,
		Name:         name,
		Roles:        roles,
		Status:       model.AgentStatusActive,
		PasswordHash: hash,
		CreatedAt:    model.Timestamp(s.now()),
	}
	if err := s.repo.CreateAgent(ctx, agent); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return model.AgentItem{}, newError(ErrorCodeConflict, "email already registered", err)
		}
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to save agent", err)
	}

	s.log.Info("agent created", zap.String("agentId", agent.AgentID), zap.Strings("roles", roles))
	return agent, nil
}

// ToAgentDTO drops the password hash.
func ToAgentDTO(agent model.AgentItem) dto.Agent {
	return dto.Agent{
		AgentID:   agent.AgentID,
		Email:     agent.Email,
		Name:      agent.Name,
		Roles:     agent.Roles,
		Status:    agent.Status,
		CreatedAt: agent.CreatedAt,
	}
}
