package inbox

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
	ErrNotFound = errors.New("inbox repository: not found")
	// ErrConflict reports a failed version check or an id that already exists.
	ErrConflict = errors.New("inbox repository: conflict")
)

type Repository interface {
	GetConversation(ctx context.Context, inboxID string) (model.ConversationItem, error)
	ListConversations(ctx context.Context) ([]model.ConversationItem, error)
	CreateConversation(ctx context.Context, conversation model.ConversationItem) error
	// SaveConversation replaces the stored item only if its version is expectedVersion.
	SaveConversation(ctx context.Context, conversation model.ConversationItem, expectedVersion int64) error

	AppendMessage(ctx context.Context, message model.MessageItem) error
	ListMessages(ctx context.Context, inboxID string) ([]model.MessageItem, error)
	GetMessage(ctx context.Context, inboxID, messageID string) (model.MessageItem, error)
	FindMessageByExternalID(ctx context.Context, externalID string) (model.MessageItem, error)
	SaveMessage(ctx context.Context, message model.MessageItem) error

	GetClient(ctx context.Context, clientID string) (model.ClientItem, error)
	FindClientByTaxID(ctx context.Context, taxID string) (model.ClientItem, error)
	// ConvertWithNewClient stores the client, its tax id reservation and the
	// conversation in a single transaction.
	ConvertWithNewClient(ctx context.Context, conversation model.ConversationItem, expectedVersion int64, client model.ClientItem) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func conversationKey(inboxID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"inboxId": database.S(inboxID)}
}

func versionCondition(expected int64) database.Condition {
	return database.Condition{
		Expression: "#version = :expectedVersion",
		Names:      map[string]string{"#version": "version"},
		Values:     map[string]types.AttributeValue{":expectedVersion": database.N(expected)},
	}
}

func (r *DynamoRepository) GetConversation(ctx context.Context, inboxID string) (model.ConversationItem, error) {
	var item model.ConversationItem
	if err := r.db.Client.GetItem(ctx, model.ConversationsTable, conversationKey(inboxID), &item); err != nil {
		return model.ConversationItem{}, mapErr(err)
	}
	return item, nil
}

func (r *DynamoRepository) ListConversations(ctx context.Context) ([]model.ConversationItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(ctx, model.ConversationsTable, "", nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.ConversationItem, 0, len(items))
	for _, raw := range items {
		var item model.ConversationItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal conversation: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *DynamoRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	err := r.db.Client.PutItem(ctx, model.ConversationsTable, conversation, database.Condition{
		Expression: "attribute_not_exists(inboxId)",
	})
	return mapErr(err)
}

func (r *DynamoRepository) SaveConversation(ctx context.Context, conversation model.ConversationItem, expectedVersion int64) error {
	err := r.db.Client.PutItem(ctx, model.ConversationsTable, conversation, versionCondition(expectedVersion))
	return mapErr(err)
}

func (r *DynamoRepository) AppendMessage(ctx context.Context, message model.MessageItem) error {
	err := r.db.Client.PutItem(ctx, model.MessagesTable, message, database.Condition{
		Expression: "attribute_not_exists(messageId)",
	})
	return mapErr(err)
}

func (r *DynamoRepository) ListMessages(ctx context.Context, inboxID string) ([]model.MessageItem, error) {
	items, err := r.db.Client.QueryAll(ctx, model.MessagesTable, database.Query{
		KeyCond:   "conversationId = :conversationId",
		Values:    map[string]types.AttributeValue{":conversationId": database.S(inboxID)},
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}
	return unmarshalMessages(items)
}

func (r *DynamoRepository) GetMessage(ctx context.Context, inboxID, messageID string) (model.MessageItem, error) {
	var item model.MessageItem
	err := r.db.Client.GetItem(ctx, model.MessagesTable, map[string]types.AttributeValue{
		"conversationId": database.S(inboxID),
		"messageId":      database.S(messageID),
	}, &item)
	if err != nil {
		return model.MessageItem{}, mapErr(err)
	}
	return item, nil
}

func (r *DynamoRepository) FindMessageByExternalID(ctx context.Context, externalID string) (model.MessageItem, error) {
	items, err := r.db.Client.QueryAll(ctx, model.MessagesTable, database.Query{
		Index:   model.MessagesByExternalIDIndex,
		KeyCond: "externalId = :externalId",
		Values:  map[string]types.AttributeValue{":externalId": database.S(externalID)},
	})
	if err != nil {
		return model.MessageItem{}, err
	}
	if len(items) == 0 {
		return model.MessageItem{}, ErrNotFound
	}
	messages, err := unmarshalMessages(items[:1])
	if err != nil {
		return model.MessageItem{}, err
	}
	return messages[0], nil
}

func (r *DynamoRepository) SaveMessage(ctx context.Context, message model.MessageItem) error {
	err := r.db.Client.PutItem(ctx, model.MessagesTable, message, database.Condition{
		Expression: "attribute_exists(messageId)",
	})
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) GetClient(ctx context.Context, clientID string) (model.ClientItem, error) {
	var item model.ClientItem
	err := r.db.Client.GetItem(ctx, model.ClientsTable, map[string]types.AttributeValue{
		"clientId": database.S(clientID),
	}, &item)
	if err != nil {
		return model.ClientItem{}, mapErr(err)
	}
	if item.BusinessName == "" {
		// tax id reservations share the table
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
		return model.ClientItem{}, mapErr(err)
	}
	return r.GetClient(ctx, reservation.OwnerClientID)
}

func (r *DynamoRepository) ConvertWithNewClient(ctx context.Context, conversation model.ConversationItem, expectedVersion int64, client model.ClientItem) error {
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
		{
			Table:     model.ConversationsTable,
			Item:      conversation,
			Condition: versionCondition(expectedVersion),
		},
	}, nil)
	return mapErr(err)
}

func unmarshalMessages(items []map[string]types.AttributeValue) ([]model.MessageItem, error) {
	out := make([]model.MessageItem, 0, len(items))
	for _, raw := range items {
		var item model.MessageItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, database.ErrConditionFailed):
		return ErrConflict
	}
	return err
}
