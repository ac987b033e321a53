// Package client is the typed REST and websocket client of the inbox API.
// Every response is checked against the dto validation tags before it is
// handed to callers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

const (
	InboxPrefix = "/api/inbox/v1"
	AuthPrefix  = "/api/auth/v1"
	WSPrefix    = "/api/ws/v1"

	maxResponseBytes = 8 << 20
)

type Client struct {
	baseURL string
	wsURL   string
	http    *http.Client
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithWebsocketURL points Subscribe at a separate ws-server, e.g. ws://host:83.
func WithWebsocketURL(u string) Option {
	return func(c *Client) { c.wsURL = strings.TrimRight(u, "/") }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransport, Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.rejection(op, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.log.Warn("undecodable response", zap.String("op", op), zap.Error(err))
		return &Error{Kind: KindInvalidResponse, Op: op, Status: resp.StatusCode, Err: err}
	}
	if err := dto.Validate(out); err != nil {
		c.log.Warn("response failed validation", zap.String("op", op), zap.Strings("fields", dto.FieldErrors(err)))
		return &Error{Kind: KindInvalidResponse, Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func (c *Client) rejection(op string, status int, data []byte) error {
	rejected := &Error{Kind: KindRejected, Op: op, Status: status, Message: http.StatusText(status)}

	var body dto.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil {
		c.log.Debug("error body is not json", zap.String("op", op), zap.Int("status", status))
		return rejected
	}
	if body.Message != "" {
		rejected.Message = body.Message
	}
	if body.Conversation != nil {
		if err := dto.Validate(body.Conversation); err != nil {
			c.log.Warn("dropping invalid conversation from error body", zap.String("op", op), zap.Error(err))
		} else {
			rejected.Conversation = body.Conversation
		}
	}
	return rejected
}

func conversationPath(id string, action ...string) string {
	p := InboxPrefix + "/conversations/" + url.PathEscape(id)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

// Login authenticates an agent and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := c.do(ctx, "login", http.MethodPost, AuthPrefix+"/login", dto.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	c.SetToken(out.AccessToken)
	return out, nil
}

func (c *Client) Me(ctx context.Context) (dto.Agent, error) {
	var out dto.MeResponse
	if err := c.do(ctx, "me", http.MethodGet, AuthPrefix+"/me", nil, &out); err != nil {
		return dto.Agent{}, err
	}
	return out.Agent, nil
}

type ListOptions struct {
	Status lead.Status
	Mode   lead.Mode
	Mine   bool
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if o.Mode != "" {
		q.Set("mode", string(o.Mode))
	}
	if o.Mine {
		q.Set("mine", "true")
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) ListConversations(ctx context.Context, opts ListOptions) ([]dto.Conversation, error) {
	var out dto.ListConversationsResponse
	if err := c.do(ctx, "list conversations", http.MethodGet, InboxPrefix+"/conversations"+opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (dto.Conversation, error) {
	var out dto.Conversation
	err := c.do(ctx, "get conversation", http.MethodGet, conversationPath(id), nil, &out)
	return out, err
}

// ListMessages returns the timeline in the order the server sent it.
func (c *Client) ListMessages(ctx context.Context, id string) ([]dto.Message, error) {
	var out dto.ListMessagesResponse
	if err := c.do(ctx, "list messages", http.MethodGet, conversationPath(id, "messages"), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) SendMessage(ctx context.Context, id string, req dto.SendMessageRequest) (dto.Message, error) {
	var out dto.Message
	err := c.do(ctx, "send message", http.MethodPost, conversationPath(id, "messages"), req, &out)
	return out, err
}

func (c *Client) MarkRead(ctx context.Context, id string) (dto.Conversation, error) {
	return c.conversationAction(ctx, "mark read", id, "read", nil)
}

func (c *Client) TakeChat(ctx context.Context, id string) (dto.Conversation, error) {
	return c.conversationAction(ctx, "take chat", id, "take", nil)
}

func (c *Client) ReleaseChat(ctx context.Context, id string) (dto.Conversation, error) {
	return c.conversationAction(ctx, "release chat", id, "release", nil)
}

func (c *Client) ChangeStatus(ctx context.Context, id string, status lead.Status) (dto.Conversation, error) {
	return c.conversationAction(ctx, "change status", id, "status", dto.ChangeStatusRequest{Status: status})
}

func (c *Client) Discard(ctx context.Context, id string, reason lead.DiscardReason, comment string) (dto.Conversation, error) {
	return c.conversationAction(ctx, "discard", id, "discard", dto.DiscardRequest{Motivo: reason, Comentario: comment})
}

func (c *Client) conversationAction(ctx context.Context, op, id, action string, body interface{}) (dto.Conversation, error) {
	var out dto.Conversation
	err := c.do(ctx, op, http.MethodPost, conversationPath(id, action), body, &out)
	return out, err
}

func (c *Client) Convert(ctx context.Context, id string, req dto.ConvertRequest) (dto.ConvertResponse, error) {
	var out dto.ConvertResponse
	err := c.do(ctx, "convert", http.MethodPost, conversationPath(id, "convert"), req, &out)
	return out, err
}

// FindClientByTaxID returns nil when no client has the tax id.
func (c *Client) FindClientByTaxID(ctx context.Context, taxID string) (*dto.Client, error) {
	var out dto.ListClientsResponse
	path := InboxPrefix + "/clients?" + url.Values{"taxId": {taxID}}.Encode()
	if err := c.do(ctx, "find client", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Clients) == 0 {
		return nil, nil
	}
	return &out.Clients[0], nil
}

func (c *Client) SearchClients(ctx context.Context, query string) ([]dto.Client, error) {
	var out dto.ListClientsResponse
	path := InboxPrefix + "/clients"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}
	if err := c.do(ctx, "search clients", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Clients, nil
}
