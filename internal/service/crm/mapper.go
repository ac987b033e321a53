package crm

import (
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

func ToClientDTO(item model.ClientItem) dto.Client {
	out := dto.Client{
		ClientID:      item.ClientID,
		BusinessName:  item.BusinessName,
		TaxID:         item.TaxID,
		Phone:         item.Phone,
		ContactName:   item.ContactName,
		Email:         item.Email,
		SourceInboxID: item.SourceInboxID,
	}
	out.CreatedAt, _ = model.ParseTimestamp(item.CreatedAt)
	return out
}

func ToClientDTOs(items []model.ClientItem) []dto.Client {
	out := make([]dto.Client, 0, len(items))
	for _, item := range items {
		out = append(out, ToClientDTO(item))
	}
	return out
}
