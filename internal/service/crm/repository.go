package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/database"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

var (
	ErrNotFound   = errors.New("crm repository: not found")
	ErrTaxIDTaken   = errors.New("crm repository: tax id already registered")
)

type Repository interface {
	// CreateClient stores the client together with its tax id reservation.
	CreateClient(ctx context.Context, client model.ClientItem) error
	GetClient(ctx context.Context, clientID string) (model.ClientItem, error)
	FindClientByTaxID(ctx context.Context, taxID string) (model.ClientItem, error)
	ListClients(ctx context.Context) ([]model.ClientItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateClient(ctx context.Context, client model.ClientItem) error {
	err := r.db.Client.TransactWrite(ctx, []database.TxPut{
		{
			Table:     model.ClientsTable,
			Item:      client,
			Condition: database.Condition{Expression: "attribute_not_exists(clientId)"},
		},
		{
			Table: model.ClientsTable,
			Item: model.ClientTaxIDItem{
				ClientID:      model.TaxIDReservationKey(client.TaxID),
				ReservedTaxID: client.TaxID,
				OwnerClientID: client.ClientID,
			},
			Condition: database.Condition{Expression: "attribute_not_exists(clientId)"},
		},
	}, nil)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrTaxIDTaken
	}
	return err
}

func (r *DynamoRepository) GetClient(ctx context.Context, clientID string) (model.ClientItem, error) {
	var item model.ClientItem
	err := r.db.Client.GetItem(ctx, model.ClientsTable, map[string]types.AttributeValue{
		"clientId": database.S(clientID),
	}, &item)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.ClientItem{}, ErrNotFound
		}
		return model.ClientItem{}, err
	}
	if item.BusinessName == "" {
		return model.ClientItem{}, ErrNotFound
	}
	return item, nil
}

func (r *DynamoRepository) FindClientByTaxID(ctx context.Context, taxID string) (model.ClientItem, error) {
	var reservation model.ClientTaxIDItem
	err := r.db.Client.GetItem(ctx, model.ClientsTable, map[string]types.AttributeValue{
		"clientId": database.S(model.TaxIDReservationKey(taxID)),
	}, &reservation)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.ClientItem{}, ErrNotFound
		}
		return model.ClientItem{}, err
	}
	return r.GetClient(ctx, reservation.OwnerClientID)
}

func (r *DynamoRepository) ListClients(ctx context.Context) ([]model.ClientItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(ctx, model.ClientsTable, "attribute_exists(businessName)", nil, nil)
	if err != nil {
		return nil, err
	}
	clients := make([]model.ClientItem, 0, len(items))
	for _, raw := range items {
		var client model.ClientItem
		if err := attributevalue.UnmarshalMap(raw, &client); err != nil {
			return nil, fmt.Errorf("unmarshal client: %w", err)
		}
		clients = append(clients, client)
	}
	return clients, nil
}
