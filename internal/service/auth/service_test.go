package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	internaljwt "github.com/GrupoCorban26/sgi-corban-sub000/internal/jwt"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

type memoryRepository struct {
	mu      sync.Mutex
	agents  map[string]model.AgentItem
	byEmail map[string]string
	logins  map[string]string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		agents:  make(map[string]model.AgentItem),
		byEmail: make(map[string]string),
		logins:  make(map[string]string),
	}
}

func (m *memoryRepository) CreateAgent(ctx context.Context, agent model.AgentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[agent.Email]; ok {
		return ErrEmailExists
	}
	m.agents[agent.AgentID] = agent
	m.byEmail[agent.Email] = agent.AgentID
	return nil
}

func (m *memoryRepository) FindAgentByEmail(ctx context.Context, email string) (model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return model.AgentItem{}, ErrNotFound
	}
	return m.agents[id], nil
}

func (m *memoryRepository) GetAgent(ctx context.Context, agentID string) (model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agent, ok := m.agents[agentID]
	if !ok {
		return model.AgentItem{}, ErrNotFound
	}
	return agent, nil
}

func (m *memoryRepository) TouchLogin(ctx context.Context, agentID, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[agentID] = at
	return nil
}

type memoryRefreshStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (s *memoryRefreshStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string][]byte)
	}
	s.values[key] = value
	return nil
}

func (s *memoryRefreshStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, internaljwt.ErrRefreshNotFound
	}
	return v, nil
}

func (s *memoryRefreshStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (s *memoryRefreshStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *memoryRepository, *internaljwt.Issuer) {
	t.Helper()
	repo := newMemoryRepository()
	issuer := internaljwt.NewIssuer("test-secret", time.Hour, &memoryRefreshStore{})
	return NewWithRepository(repo, issuer, fixedNow), repo, issuer
}

func seedAgent(t *testing.T, svc *Service, email string, roles ...string) model.AgentItem {
	t.Helper()
	agent, err := svc.CreateAgent(context.Background(), authctx.Context{}, CreateAgentParams{
		Email:    email,
		Name:     "Agente",
		Password: "s3cret!",
		Roles:    roles,
	}, true)
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return agent
}

func codeOf(t *testing.T, err error) ErrorCode {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	return svcErr.Code
}

func TestLoginIssuesTokensWithRoles(t *testing.T) {
	svc, repo, issuer := newTestService(t)
	agent := seedAgent(t, svc, "Ana@Corban.pe", "advisor")

	result, err := svc.Login(context.Background(), LoginParams{Email: " ana@corban.pe ", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, agent.AgentID, result.Agent.AgentID)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.Equal(t, model.Timestamp(fixedNow()), repo.logins[agent.AgentID])

	user, err := issuer.ParseToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, agent.AgentID, user.ID)
	assert.Equal(t, []string{"ADVISOR"}, user.Roles)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, repo, _ := newTestService(t)
	agent := seedAgent(t, svc, "ana@corban.pe", "ADVISOR")
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginParams{Email: "ana@corban.pe", Password: "wrong"})
	assert.Equal(t, ErrorCodeUnauthorized, codeOf(t, err))

	_, err = svc.Login(ctx, LoginParams{Email: "nadie@corban.pe", Password: "s3cret!"})
	assert.Equal(t, ErrorCodeUnauthorized, codeOf(t, err))

	_, err = svc.Login(ctx, LoginParams{Email: "", Password: ""})
	assert.Equal(t, ErrorCodeValidation, codeOf(t, err))

	disabled := repo.agents[agent.AgentID]
	disabled.Status = "disabled"
	repo.agents[agent.AgentID] = disabled
	_, err = svc.Login(ctx, LoginParams{Email: "ana@corban.pe", Password: "s3cret!"})
	assert.Equal(t, ErrorCodeUnauthorized, codeOf(t, err))
}

func TestRefreshAndLogout(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedAgent(t, svc, "ana@corban.pe", "ADVISOR")
	ctx := context.Background()

	result, err := svc.Login(ctx, LoginParams{Email: "ana@corban.pe", Password: "s3cret!"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, result.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	require.NoError(t, svc.Logout(ctx, result.Tokens.RefreshToken))
	_, err = svc.Refresh(ctx, result.Tokens.RefreshToken)
	assert.Equal(t, ErrorCodeUnauthorized, codeOf(t, err))
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestService(t)
	agent := seedAgent(t, svc, "sup@corban.pe", "SUPERVISOR")

	got, err := svc.Me(context.Background(), authctx.Context{UserID: agent.AgentID, Roles: []authctx.Role{authctx.RoleSupervisor}})
	require.NoError(t, err)
	assert.Equal(t, "sup@corban.pe", got.Email)
	assert.Equal(t, model.AgentStatusActive, ToAgentDTO(got).Status)

	_, err = svc.Me(context.Background(), authctx.Context{})
	assert.Equal(t, ErrorCodeUnauthorized, codeOf(t, err))
}

func TestCreateAgentRules(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	admin := authctx.Context{UserID: "admin", Roles: []authctx.Role{authctx.RoleAdmin}}
	advisor := authctx.Context{UserID: "adv", Roles: []authctx.Role{authctx.RoleAdvisor}}
	params := CreateAgentParams{Email: "luis@corban.pe", Name: "Luis", Password: "x", Roles: []string{"ADVISOR"}}

	_, err := svc.CreateAgent(ctx, advisor, params, false)
	assert.Equal(t, ErrorCodeForbidden, codeOf(t, err))

	_, err = svc.CreateAgent(ctx, admin, params, false)
	require.NoError(t, err)

	_, err = svc.CreateAgent(ctx, admin, params, false)
	assert.Equal(t, ErrorCodeConflict, codeOf(t, err))

	_, err = svc.CreateAgent(ctx, admin, CreateAgentParams{Email: "x@corban.pe", Name: "X", Password: "x", Roles: []string{"ROOT"}}, false)
	assert.Equal(t, ErrorCodeValidation, codeOf(t, err))
}
