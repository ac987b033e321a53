package model

import (
	"fmt"
	"time"
)

const (
	ConversationsTable = "InboxConversations"
	MessagesTable      = "InboxMessages"
	ClientsTable       = "CrmClients"
	AgentsTable        = "Agents"
)

const (
	MessagesByExternalIDIndex = "byExternalId"
	AgentsByEmailIndex        = "byEmail"
)

// TimestampLayout is fixed width so stored timestamps sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimestampLayout, value)
	if err != nil {
		return time.Parse(time.RFC3339Nano, value)
	}
	return t, nil
}

type AgentItem struct {
	AgentID      string   `dynamodbav:"agentId"`
	Email        string   `dynamodbav:"email"`
	Name         string   `dynamodbav:"name"`
	Roles        []string `dynamodbav:"roles,stringset,omitempty"`
	Status       string   `dynamodbav:"status"`
	PasswordHash string   `dynamodbav:"passwordHash"`
	CreatedAt    string   `dynamodbav:"createdAt"`
	LastLoginAt  string   `dynamodbav:"lastLoginAt,omitempty"`
}

const AgentStatusActive = "active"

type ClientItem struct {
	ClientID      string `dynamodbav:"clientId"`
	BusinessName  string `dynamodbav:"businessName"`
	TaxID         string `dynamodbav:"taxId"`
	Phone         string `dynamodbav:"phone,omitempty"`
	ContactName   string `dynamodbav:"contactName,omitempty"`
	Email         string `dynamodbav:"email,omitempty"`
	SourceInboxID string `dynamodbav:"sourceInboxId,omitempty"`
	CreatedBy     string `dynamodbav:"createdBy,omitempty"`
	CreatedAt     string `dynamodbav:"createdAt"`
}

// ClientTaxIDItem reserves a tax id inside the clients table. It is written in
// the same transaction as the client so a tax id can never be registered twice.
type ClientTaxIDItem struct {
	ClientID      string `dynamodbav:"clientId"`
	ReservedTaxID string `dynamodbav:"reservedTaxId"`
	OwnerClientID string `dynamodbav:"ownerClientId"`
}

func TaxIDReservationKey(taxID string) string {
	return fmt.Sprintf("taxid#%s", taxID)
}
