package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/beanleaf/pkg/auth"
	"github.com/shashiranjanraj/beanleaf/pkg/bind"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/response"
)

// AuthController exchanges the admin API key for a staff token.
type AuthController struct {
	apiKeyHash string
}

func NewAuthController(apiKeyHash string) *AuthController {
	return &AuthController{apiKeyHash: apiKeyHash}
}

// Token handles POST /api/token.
func (c *AuthController) Token(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := bind.JSON(w, r, &body); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if !auth.CheckAPIKey(c.apiKeyHash, body.APIKey) {
		logger.WithCtx(r.Context()).Warn("token request with a bad api key")
		response.Unauthorized(w)
		return
	}

	token, err := auth.GenerateToken("ops", auth.RoleStaff)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(auth.TokenTTL.Seconds()),
	})
}
