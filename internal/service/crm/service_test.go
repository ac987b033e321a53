package crm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

type memoryRepository struct {
	mu      sync.Mutex
	clients map[string]model.ClientItem
	taxIDs  map[string]string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		clients: make(map[string]model.ClientItem),
		taxIDs:  make(map[string]string),
	}
}

func (m *memoryRepository) CreateClient(ctx context.Context, client model.ClientItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.taxIDs[client.TaxID]; ok {
		return ErrTaxIDTaken
	}
	m.clients[client.ClientID] = client
	m.taxIDs[client.TaxID] = client.ClientID
	return nil
}

func (m *memoryRepository) GetClient(ctx context.Context, clientID string) (model.ClientItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok {
		return model.ClientItem{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepository) FindClientByTaxID(ctx context.Context, taxID string) (model.ClientItem, error) {
	m.mu.Lock()
	id, ok := m.taxIDs[taxID]
	m.mu.Unlock()
	if !ok {
		return model.ClientItem{}, ErrNotFound
	}
	return m.GetClient(ctx, id)
}

func (m *memoryRepository) ListClients(ctx context.Context) ([]model.ClientItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ClientItem, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out, nil
}

var advisor = authctx.Context{UserID: "agent-1", Roles: []authctx.Role{authctx.RoleAdvisor}}

func newTestService() (*Service, *memoryRepository) {
	repo := newMemoryRepository()
	return NewWithRepository(repo, func() time.Time {
		return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	}), repo
}

func codeOf(t *testing.T, err error) ErrorCode {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	return svcErr.Code
}

func TestCreateClientNormalizesAndStores(t *testing.T) {
	svc, repo := newTestService()

	client, err := svc.CreateClient(context.Background(), advisor, CreateParams{
		BusinessName: "  Transportes   del Sur SAC",
		TaxID:        " 20512345678 ",
		Phone:        "+51 987-654-321",
		Email:        " Ventas@TDS.pe ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Transportes del Sur SAC", client.BusinessName)
	assert.Equal(t, "20512345678", client.TaxID)
	assert.Equal(t, "51987654321", client.Phone)
	assert.Equal(t, "ventas@tds.pe", client.Email)
	assert.Equal(t, advisor.UserID, client.CreatedBy)
	assert.Equal(t, "2024-03-01T09:00:00.000000000Z", client.CreatedAt)
	assert.Contains(t, repo.clients, client.ClientID)
}

func TestCreateClientRejectsDuplicateTaxID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateClient(ctx, advisor, CreateParams{BusinessName: "A SAC", TaxID: "20512345678"})
	require.NoError(t, err)

	_, err = svc.CreateClient(ctx, advisor, CreateParams{BusinessName: "B SAC", TaxID: "20512345678"})
	assert.Equal(t, ErrorCodeConflict, codeOf(t, err))
}

func TestCreateClientValidation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.CreateClient(ctx, advisor, CreateParams{TaxID: "20512345678"})
	assert.Equal(t, ErrorCodeValidation, codeOf(t, err))

	_, err = svc.CreateClient(ctx, advisor, CreateParams{BusinessName: "A SAC", TaxID: "2051234567X"})
	assert.Equal(t, ErrorCodeValidation, codeOf(t, err))

	_, err = svc.CreateClient(ctx, authctx.Context{}, CreateParams{BusinessName: "A SAC", TaxID: "20512345678"})
	assert.Equal(t, ErrorCodeUnauthorized, codeOf(t, err))

	assert.Empty(t, repo.clients)
}

func TestFindByTaxIDAndGet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateClient(ctx, advisor, CreateParams{BusinessName: "A SAC", TaxID: "20512345678"})
	require.NoError(t, err)

	found, err := svc.FindByTaxID(ctx, advisor, "20512345678")
	require.NoError(t, err)
	assert.Equal(t, created.ClientID, found.ClientID)

	_, err = svc.FindByTaxID(ctx, advisor, "20999999999")
	assert.Equal(t, ErrorCodeNotFound, codeOf(t, err))

	_, err = svc.FindByTaxID(ctx, advisor, "123")
	assert.Equal(t, ErrorCodeValidation, codeOf(t, err))

	got, err := svc.GetClient(ctx, advisor, created.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "A SAC", got.BusinessName)
}

func TestListClientsSortsAndFilters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, p := range []CreateParams{
		{BusinessName: "Zeta Cargo SAC", TaxID: "20100000001"},
		{BusinessName: "alfa logistics", TaxID: "20100000002"},
		{BusinessName: "Beta Aduanas", TaxID: "20300000003"},
	} {
		_, err := svc.CreateClient(ctx, advisor, p)
		require.NoError(t, err)
	}

	all, err := svc.ListClients(ctx, advisor, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alfa logistics", all[0].BusinessName)
	assert.Equal(t, "Zeta Cargo SAC", all[2].BusinessName)

	byName, err := svc.ListClients(ctx, advisor, "CARGO")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	byTax, err := svc.ListClients(ctx, advisor, "2010")
	require.NoError(t, err)
	assert.Len(t, byTax, 2)
}
