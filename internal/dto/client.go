package dto

import "time"

type ClientInput struct {
	BusinessName string `json:"businessName" validate:"required,max=200"`
	TaxID        string `json:"taxId" validate:"required,len=11,numeric"`
	ContactName  string `json:"contactName,omitempty" validate:"max=200"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
}

type CreateClientRequest struct {
	ClientInput
	SourceInboxID string `json:"sourceInboxId,omitempty"`
}

type Client struct {
	ClientID      string    `json:"clientId" validate:"required"`
	BusinessName  string    `json:"businessName" validate:"required"`
	TaxID         string    `json:"taxId" validate:"required,len=11"`
	Phone         string    `json:"phone,omitempty"`
	ContactName   string    `json:"contactName,omitempty"`
	Email         string    `json:"email,omitempty"`
	SourceInboxID string    `json:"sourceInboxId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ListClientsResponse struct {
	Clients []Client `json:"clients" validate:"dive"`
}
