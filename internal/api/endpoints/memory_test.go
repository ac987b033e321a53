package endpoints

import (
	"context"
	"sync"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
	crmservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/crm"
	inboxservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/inbox"
)

// memoryStore backs both the inbox and the crm repositories so converted
// clients are visible through the clients API.
type memoryStore struct {
	mu            sync.Mutex
	conversations map[string]model.ConversationItem
	messages      map[string][]model.MessageItem
	clients       map[string]model.ClientItem
	taxIDs        map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		conversations: make(map[string]model.ConversationItem),
		messages:      make(map[string][]model.MessageItem),
		clients:       make(map[string]model.ClientItem),
		taxIDs:        make(map[string]string),
	}
}

type inboxRepo struct{ *memoryStore }

type crmRepo struct{ *memoryStore }

func (m inboxRepo) GetConversation(ctx context.Context, inboxID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[inboxID]
	if !ok {
		return model.ConversationItem{}, inboxservice.ErrNotFound
	}
	return c, nil
}

func (m inboxRepo) ListConversations(ctx context.Context) ([]model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ConversationItem, 0, len(m.conversations))
	for _, c := range m.conversations {
		out = append(out, c)
	}
	return out, nil
}

func (m inboxRepo) CreateConversation(ctx context.Context, c model.ConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[c.InboxID]; ok {
		return inboxservice.ErrConflict
	}
	m.conversations[c.InboxID] = c
	return nil
}

func (m inboxRepo) SaveConversation(ctx context.Context, c model.ConversationItem, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conversations[c.InboxID].Version != expectedVersion {
		return inboxservice.ErrConflict
	}
	m.conversations[c.InboxID] = c
	return nil
}

func (m inboxRepo) AppendMessage(ctx context.Context, msg model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], msg)
	return nil
}

func (m inboxRepo) ListMessages(ctx context.Context, inboxID string) ([]model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.MessageItem(nil), m.messages[inboxID]...), nil
}

func (m inboxRepo) GetMessage(ctx context.Context, inboxID, messageID string) (model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages[inboxID] {
		if msg.MessageID == messageID {
			return msg, nil
		}
	}
	return model.MessageItem{}, inboxservice.ErrNotFound
}

func (m inboxRepo) FindMessageByExternalID(ctx context.Context, externalID string) (model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msgs := range m.messages {
		for _, msg := range msgs {
			if msg.ExternalID != "" && msg.ExternalID == externalID {
				return msg, nil
			}
		}
	}
	return model.MessageItem{}, inboxservice.ErrNotFound
}

func (m inboxRepo) SaveMessage(ctx context.Context, msg model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[msg.ConversationID]
	for i := range msgs {
		if msgs[i].MessageID == msg.MessageID {
			msgs[i] = msg
			return nil
		}
	}
	return inboxservice.ErrNotFound
}

func (m inboxRepo) GetClient(ctx context.Context, clientID string) (model.ClientItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok {
		return model.ClientItem{}, inboxservice.ErrNotFound
	}
	return c, nil
}

func (m inboxRepo) FindClientByTaxID(ctx context.Context, taxID string) (model.ClientItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.taxIDs[taxID]
	if !ok {
		return model.ClientItem{}, inboxservice.ErrNotFound
	}
	return m.clients[id], nil
}

func (m inboxRepo) ConvertWithNewClient(ctx context.Context, c model.ConversationItem, expectedVersion int64, client model.ClientItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conversations[c.InboxID].Version != expectedVersion {
		return inboxservice.ErrConflict
	}
	if _, taken := m.taxIDs[client.TaxID]; taken {
		return inboxservice.ErrConflict
	}
	m.clients[client.ClientID] = client
	m.taxIDs[client.TaxID] = client.ClientID
	m.conversations[c.InboxID] = c
	return nil
}

func (m crmRepo) CreateClient(ctx context.Context, client model.ClientItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.taxIDs[client.TaxID]; taken {
		return crmservice.ErrTaxIDTaken
	}
	m.clients[client.ClientID] = client
	m.taxIDs[client.TaxID] = client.ClientID
	return nil
}

func (m crmRepo) GetClient(ctx context.Context, clientID string) (model.ClientItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok {
		return model.ClientItem{}, crmservice.ErrNotFound
	}
	return c, nil
}

func (m crmRepo) FindClientByTaxID(ctx context.Context, taxID string) (model.ClientItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.taxIDs[taxID]
	if !ok {
		return model.ClientItem{}, crmservice.ErrNotFound
	}
	return m.clients[id], nil
}

func (m crmRepo) ListClients(ctx context.Context) ([]model.ClientItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ClientItem, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out, nil
}
