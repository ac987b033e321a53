package auth

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/database"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

var (
	ErrNotFound    = errors.New("auth repository: not found")
	ErrEmailExists = errors.New("auth repository: email already registered")
)

type Repository interface {
	CreateAgent(ctx context.Context, agent model.AgentItem) error
	FindAgentByEmail(ctx context.Context, email string) (model.AgentItem, error)
	GetAgent(ctx context.Context, agentID string) (model.AgentItem, error)
	TouchLogin(ctx context.Context, agentID, at string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

// CreateAgent relies on the byEmail index lookup for uniqueness; the agent
// id itself is guarded by the put condition.
func (r *DynamoRepository) CreateAgent(ctx context.Context, agent model.AgentItem) error {
	if _, err := r.FindAgentByEmail(ctx, agent.Email); err == nil {
		return ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return r.db.Client.PutItem(ctx, model.AgentsTable, agent, database.Condition{
		Expression: "attribute_not_exists(agentId)",
	})
}

func (r *DynamoRepository) FindAgentByEmail(ctx context.Context, email string) (model.AgentItem, error) {
	items, err := r.db.Client.QueryAll(ctx, model.AgentsTable, database.Query{
		Index:   model.AgentsByEmailIndex,
		KeyCond: "email = :email",
		Values:  map[string]types.AttributeValue{":email": database.S(email)},
	})
	if err != nil {
		return model.AgentItem{}, err
	}
	if len(items) == 0 {
		return model.AgentItem{}, ErrNotFound
	}

	var agent model.AgentItem
	if err := attributevalue.UnmarshalMap(items[0], &agent); err != nil {
		return model.AgentItem{}, err
	}
	return agent, nil
}

func (r *DynamoRepository) GetAgent(ctx context.Context, agentID string) (model.AgentItem, error) {
	var agent model.AgentItem
	err := r.db.Client.GetItem(ctx, model.AgentsTable, map[string]types.AttributeValue{
		"agentId": database.S(agentID),
	}, &agent)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.AgentItem{}, ErrNotFound
		}
		return model.AgentItem{}, err
	}
	return agent, nil
}

func (r *DynamoRepository) TouchLogin(ctx context.Context, agentID, at string) error {
	return r.db.Client.UpdateItem(ctx, model.AgentsTable, database.Update{
		Key:        map[string]types.AttributeValue{"agentId": database.S(agentID)},
		Expression: "SET lastLoginAt = :at",
		Condition:  database.Condition{Expression: "attribute_exists(agentId)"},
		Values:     map[string]types.AttributeValue{":at": database.S(at)},
	}, nil)
}
