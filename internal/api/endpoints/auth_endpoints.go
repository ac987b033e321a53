package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	authsvc "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/auth"
)

type AuthEndpoints interface {
	Login(http.ResponseWriter, *http.Request) error
	Refresh(http.ResponseWriter, *http.Request) error
	Logout(http.ResponseWriter, *http.Request) error
	Me(http.ResponseWriter, *http.Request) error
	Agents(http.ResponseWriter, *http.Request) error
}

type authEndpoints struct {
	service *authsvc.Service
}

func NewAuthEndpoints(service *authsvc.Service) AuthEndpoints {
	return &authEndpoints{service: service}
}

func (h *authEndpoints) Login(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogin,
	})
}

func (h *authEndpoints) Refresh(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRefresh,
	})
}

func (h *authEndpoints) Logout(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogout,
	})
}

func (h *authEndpoints) Me(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleMe,
	})
}

func (h *authEndpoints) Agents(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleCreateAgent,
	})
}

func (h *authEndpoints) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req dto.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}

	result, err := h.service.Login(r.Context(), authsvc.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return authServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.AuthResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		Agent:        authsvc.ToAgentDTO(result.Agent),
	})
}

func (h *authEndpoints) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return authServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, tokens)
}

func (h *authEndpoints) handleLogout(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		return authServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Logged out"})
}

func (h *authEndpoints) handleMe(w http.ResponseWriter, r *http.Request) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	agent, err := h.service.Me(r.Context(), auth)
	if err != nil {
		return authServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.MeResponse{Agent: authsvc.ToAgentDTO(agent)})
}

func (h *authEndpoints) handleCreateAgent(w http.ResponseWriter, r *http.Request) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	var req dto.CreateAgentRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	agent, err := h.service.CreateAgent(r.Context(), auth, authsvc.CreateAgentParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Roles:    req.Roles,
	}, false)
	if err != nil {
		return authServiceError(err)
	}
	return WriteJSON(w, http.StatusCreated, authsvc.ToAgentDTO(agent))
}

func authServiceError(err error) error {
	var svcErr *authsvc.Error
	if !errors.As(err, &svcErr) {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("auth service: %w", err),
		}
	}

	logErr := error(svcErr)
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	}

	switch svcErr.Code {
	case authsvc.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case authsvc.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: logErr}
	case authsvc.ErrorCodeForbidden:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: logErr}
	case authsvc.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	case authsvc.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}
