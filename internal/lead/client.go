package lead

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrMissingBusinessName = errors.New("business name is required")
	ErrInvalidTaxID        = errors.New("tax id must have 11 digits")
)

// ClientIdentity is the data collected before a lead can be closed as a CRM client.
type ClientIdentity struct {
	BusinessName string
	TaxID        string
	ContactName  string
	Phone        string
	Email        string
}

func (c ClientIdentity) Normalize() ClientIdentity {
	return ClientIdentity{
		BusinessName: strings.Join(strings.Fields(c.BusinessName), " "),
		TaxID:        strings.TrimSpace(c.TaxID),
		ContactName:  strings.TrimSpace(c.ContactName),
		Phone:        NormalizePhone(c.Phone),
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
	}
}

func (c ClientIdentity) Validate() error {
	c = c.Normalize()
	var errs []error
	if c.BusinessName == "" {
		errs = append(errs, ErrMissingBusinessName)
	}
	if !validTaxID(c.TaxID) {
		errs = append(errs, ErrInvalidTaxID)
	}
	return errors.Join(errs...)
}

func validTaxID(id string) bool {
	if len(id) != 11 {
		return false
	}
	for _, r := range id {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
