package dto

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type Agent struct {
	AgentID   string   `json:"agentId" validate:"required"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Roles     []string `json:"roles"`
	Status    string   `json:"status,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

type AuthResponse struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Agent        Agent  `json:"agent"`
}

type MeResponse struct {
	Agent Agent `json:"agent"`
}

type CreateAgentRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Name     string   `json:"name" validate:"required"`
	Password string   `json:"password" validate:"required,min=8"`
	Roles    []string `json:"roles" validate:"required,min=1,dive,oneof=ADVISOR SUPERVISOR ADMIN BOT"`
}
