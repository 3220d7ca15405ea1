package handler

import (
	"github.com/labstack/echo/v4"

	"tradechat/internal/domain/repository"
	"tradechat/pkg/response"
)

// TokenIssuer signs bearer tokens for a user id.
type TokenIssuer interface {
	GenerateToken(uid string) (string, error)
}

type DevTokenHandler struct {
	issuer   TokenIssuer
	userRepo repository.UserRepository
}

func NewDevTokenHandler(issuer TokenIssuer, userRepo repository.UserRepository) *DevTokenHandler {
	return &DevTokenHandler{
		issuer:   issuer,
		userRepo: userRepo,
	}
}

type devTokenRequest struct {
	Username string `json:"username" validate:"required"`
}

// GenerateUserToken issues a bearer token for a seeded user. It is only
// routed in development.
func (h *DevTokenHandler) GenerateUserToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.userRepo.GetByUsername(c.Request().Context(), req.Username)
	if err != nil {
		return response.Error(c, err)
	}

	token, err := h.issuer.GenerateToken(user.ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user":  user.Summary(),
	})
}
