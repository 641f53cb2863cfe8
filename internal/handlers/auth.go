package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Atubu88/quiz/internal/middleware"
	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login exchanges Mini App initData for a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "init_data обязателен"})
		return
	}

	tgUser, err := h.auth.ValidateInitData(req.InitData)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.auth.GetOrCreateUser(c.Request.Context(), tgUser)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.auth.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}

// WidgetLogin authenticates a Telegram Login Widget payload. The widget
// posts its fields flat, so the whole form is the signed document.
func (h *AuthHandler) WidgetLogin(c *gin.Context) {
	var fields map[string]string
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "некорректные данные виджета"})
		return
	}

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}

	tgUser, err := h.auth.ValidateLoginWidget(values)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.auth.GetOrCreateUser(c.Request.Context(), tgUser)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.auth.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	telegramID, _ := c.Get(middleware.ContextTelegramID)
	tid, _ := telegramID.(int64)

	user, err := h.auth.GetUserByTelegramID(c.Request.Context(), tid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
