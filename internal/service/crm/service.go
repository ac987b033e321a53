// Package crm manages the client records leads are converted into.
package crm

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/database"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

type Service struct {
	repo Repository
	now  func() time.Time
	log  *zap.Logger
}

func New(db *database.Database, log *zap.Logger) *Service {
	s := NewWithRepository(NewDynamoRepository(db), time.Now)
	if log != nil {
		s.log = log.Named("crm")
	}
	return s
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
		log:  zap.NewNop(),
	}
}

func requireAgent(auth authctx.Context) error {
	if !auth.Valid() {
		return newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}
	if !auth.HasRole(authctx.RoleAdvisor, authctx.RoleSupervisor, authctx.RoleAdmin) {
		return newError(ErrorCodeForbidden, "agent role required", nil)
	}
	return nil
}

func (s *Service) CreateClient(ctx context.Context, auth authctx.Context, params CreateParams) (model.ClientItem, error) {
	if err := requireAgent(auth); err != nil {
		return model.ClientItem{}, err
	}

	identity := lead.ClientIdentity{
		BusinessName: params.BusinessName,
		TaxID:        params.TaxID,
		ContactName:  params.ContactName,
		Phone:        params.Phone,
		Email:        params.Email,
	}.Normalize()
	if err := identity.Validate(); err != nil {
		return model.ClientItem{}, newError(ErrorCodeValidation, "invalid client data", err)
	}

	client := model.ClientItem{
		ClientID:      uuid.NewString(),
		BusinessName:  identity.BusinessName,
		TaxID:         identity.TaxID,
		Phone:         identity.Phone,
		ContactName:   identity.ContactName,
		Email:         identity.Email,
		SourceInboxID: strings.TrimSpace(params.SourceInboxID),
		CreatedBy:     auth.UserID,
		CreatedAt:     model.Timestamp(s.now()),
	}
	if err := s.repo.CreateClient(ctx, client); err != nil {
		if errors.Is(err, ErrTaxIDTaken) {
			return model.ClientItem{}, newError(ErrorCodeConflict, "a client with this tax id already exists", err)
		}
		return model.ClientItem{}, newError(ErrorCodeInternal, "failed to save client", err)
	}

	s.log.Info("client created", zap.String("clientId", client.ClientID), zap.String("taxId", client.TaxID))
	return client, nil
}

func (s *Service) GetClient(ctx context.Context, auth authctx.Context, clientID string) (model.ClientItem, error) {
	if err := requireAgent(auth); err != nil {
		return model.ClientItem{}, err
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return model.ClientItem{}, newError(ErrorCodeValidation, "client id is required", nil)
	}
	return s.fetch(s.repo.GetClient(ctx, clientID))
}

func (s *Service) FindByTaxID(ctx context.Context, auth authctx.Context, taxID string) (model.ClientItem, error) {
	if err := requireAgent(auth); err != nil {
		return model.ClientItem{}, err
	}
	taxID = strings.TrimSpace(taxID)
	if err := (lead.ClientIdentity{BusinessName: "-", TaxID: taxID}).Validate(); err != nil {
		return model.ClientItem{}, newError(ErrorCodeValidation, "invalid tax id", err)
	}
	return s.fetch(s.repo.FindClientByTaxID(ctx, taxID))
}

func (s *Service) fetch(client model.ClientItem, err error) (model.ClientItem, error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ClientItem{}, newError(ErrorCodeNotFound, "client not found", err)
		}
		return model.ClientItem{}, newError(ErrorCodeInternal, "failed to fetch client", err)
	}
	return client, nil
}

// ListClients returns every client sorted by business name. A non-empty query
// keeps clients whose business name or tax id contains it.
func (s *Service) ListClients(ctx context.Context, auth authctx.Context, query string) ([]model.ClientItem, error) {
	if err := requireAgent(auth); err != nil {
		return nil, err
	}
	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list clients", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	out := clients[:0]
	for _, c := range clients {
		if query == "" ||
			strings.Contains(strings.ToLower(c.BusinessName), query) ||
			strings.Contains(c.TaxID, query) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].BusinessName) < strings.ToLower(out[j].BusinessName)
	})
	return out, nil
}
