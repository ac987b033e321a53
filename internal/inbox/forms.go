package inbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

// DiscardForm holds the discard sub-flow input for one conversation.
type DiscardForm struct {
	InboxID string
	Reason  lead.DiscardReason
	Comment string
}

func (f DiscardForm) Validate() error {
	if err := (lead.Discard{Reason: f.Reason, Comment: f.Comment}).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrDiscardIncomplete, err)
	}
	return nil
}

// ClientForm closes a lead as a CRM client: either ClientID of an existing
// client or the identity of a new one.
type ClientForm struct {
	ClientID     string
	BusinessName string
	TaxID        string
	ContactName  string
	Phone        string
	Email        string
}

func (f ClientForm) identity() lead.ClientIdentity {
	return lead.ClientIdentity{
		BusinessName: f.BusinessName,
		TaxID:        f.TaxID,
		ContactName:  f.ContactName,
		Phone:        f.Phone,
		Email:        f.Email,
	}.Normalize()
}

func (f ClientForm) Validate() error {
	if strings.TrimSpace(f.ClientID) != "" {
		if f.BusinessName != "" || f.TaxID != "" {
			return errors.New("use either an existing client or a new client, not both")
		}
		return nil
	}
	return f.identity().Validate()
}

func (f ClientForm) request() dto.ConvertRequest {
	if id := strings.TrimSpace(f.ClientID); id != "" {
		return dto.ConvertRequest{ClientID: id}
	}
	id := f.identity()
	return dto.ConvertRequest{NewClient: &dto.ClientInput{
		BusinessName: id.BusinessName,
		TaxID:        id.TaxID,
		ContactName:  id.ContactName,
		Phone:        id.Phone,
		Email:        id.Email,
	}}
}
