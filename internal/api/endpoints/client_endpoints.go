package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	crmservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/crm"
)

type ClientEndpoints interface {
	Clients(http.ResponseWriter, *http.Request) error
	Client(http.ResponseWriter, *http.Request) error
}

type clientEndpoints struct {
	service      *crmservice.Service
	clientPrefix string
}

func NewClientEndpoints(service *crmservice.Service, clientPrefix string) ClientEndpoints {
	return &clientEndpoints{service: service, clientPrefix: clientPrefix}
}

func (h *clientEndpoints) Clients(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleList,
		http.MethodPost: h.handleCreate,
	})
}

func (h *clientEndpoints) Client(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleGet,
	})
}

// handleList also answers ?taxId= lookups with a single-element list.
func (h *clientEndpoints) handleList(w http.ResponseWriter, r *http.Request) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}

	if taxID := r.URL.Query().Get("taxId"); taxID != "" {
		client, err := h.service.FindByTaxID(r.Context(), auth, taxID)
		if err != nil {
			var svcErr *crmservice.Error
			if errors.As(err, &svcErr) && svcErr.Code == crmservice.ErrorCodeNotFound {
				return WriteJSON(w, http.StatusOK, dto.ListClientsResponse{Clients: []dto.Client{}})
			}
			return crmServiceError(err)
		}
		return WriteJSON(w, http.StatusOK, dto.ListClientsResponse{Clients: []dto.Client{crmservice.ToClientDTO(client)}})
	}

	clients, err := h.service.ListClients(r.Context(), auth, r.URL.Query().Get("q"))
	if err != nil {
		return crmServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.ListClientsResponse{Clients: crmservice.ToClientDTOs(clients)})
}

func (h *clientEndpoints) handleCreate(w http.ResponseWriter, r *http.Request) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	var req dto.CreateClientRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	client, err := h.service.CreateClient(r.Context(), auth, crmservice.CreateParams{
		BusinessName:  req.BusinessName,
		TaxID:         req.TaxID,
		ContactName:   req.ContactName,
		Phone:         req.Phone,
		Email:         req.Email,
		SourceInboxID: req.SourceInboxID,
	})
	if err != nil {
		return crmServiceError(err)
	}
	return WriteJSON(w, http.StatusCreated, crmservice.ToClientDTO(client))
}

func (h *clientEndpoints) handleGet(w http.ResponseWriter, r *http.Request) error {
	parts, err := splitPath(r.URL.Path, h.clientPrefix)
	if err != nil {
		return err
	}
	if len(parts) != 1 {
		return &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("invalid client path: %s", r.URL.Path)}
	}
	auth, err := identity(r)
	if err != nil {
		return err
	}
	client, err := h.service.GetClient(r.Context(), auth, parts[0])
	if err != nil {
		return crmServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, crmservice.ToClientDTO(client))
}

func crmServiceError(err error) error {
	var svcErr *crmservice.Error
	if !errors.As(err, &svcErr) {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("crm service: %w", err),
		}
	}

	logErr := error(svcErr)
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	}

	status := http.StatusInternalServerError
	message := svcErr.Message
	switch svcErr.Code {
	case crmservice.ErrorCodeValidation:
		status = http.StatusBadRequest
	case crmservice.ErrorCodeUnauthorized:
		status = http.StatusUnauthorized
	case crmservice.ErrorCodeForbidden:
		status = http.StatusForbidden
	case crmservice.ErrorCodeNotFound:
		status = http.StatusNotFound
	case crmservice.ErrorCodeConflict:
		status = http.StatusConflict
	default:
		message = "Internal server error"
	}
	return &HTTPError{StatusCode: status, Message: message, ErrorLog: logErr}
}
