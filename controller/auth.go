package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"renochat/lib"
	"renochat/model"
	"renochat/platform"
	"renochat/service"
)

var logger = platform.Logger

// AuthController ...
type AuthController struct {
	auth *service.AuthService
	chat *service.ChatService
}

func NewAuthController(auth *service.AuthService, chat *service.ChatService) *AuthController {
	return &AuthController{auth: auth, chat: chat}
}

func (ctrl *AuthController) Login(c *gin.Context) {
	logger.Infof("[%s] Handling login request", c.GetString("requestId"))

	var loginRequest model.LoginRequest
	if err := c.ShouldBindJSON(&loginRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	resp, err := ctrl.auth.LoginWithCredentials(loginRequest)
	if err != nil {
		logger.Warnf("[%s] User %s failed to login: %s", c.GetString("requestId"), loginRequest.Username, err)
		if errors.Is(err, lib.ErrAuthFailed) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales incorrectas. Por favor, verifica tu usuario y contraseña."})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Ocurrió un error inesperado. Por favor, inténtalo de nuevo."})
		return
	}

	// Authentication is in place, hydrate the conversation list.
	if _, err := ctrl.chat.LoadConversations(); err != nil {
		logger.Warnf("[%s] load conversations after login error, %s", c.GetString("requestId"), err)
	}

	logger.Infof("[%s] User %s login successfully", c.GetString("requestId"), loginRequest.Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": resp.User, "token": resp.Access})
}

func (ctrl *AuthController) Logout(c *gin.Context) {
	ctrl.chat.Reset()
	ctrl.auth.Logout()
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Session restores a persisted session on startup and reports the current
// user. 401 means a fresh login is required.
func (ctrl *AuthController) Session(c *gin.Context) {
	if !ctrl.auth.IsAuthenticated() {
		if !ctrl.auth.CheckAuth() {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Please login first"})
			return
		}
		if _, err := ctrl.chat.LoadConversations(); err != nil {
			logger.Warnf("[%s] load conversations after restore error, %s", c.GetString("requestId"), err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": ctrl.auth.CurrentUser()})
}
