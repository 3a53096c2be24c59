package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flipball-backend/internal/models"
	"flipball-backend/internal/services"
)

type UserHandler struct {
	accounts *services.AccountService
	log      logrus.FieldLogger
}

func NewUserHandler(accounts *services.AccountService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		log:      log,
	}
}

func (h *UserHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := h.accounts.Signup(c.Request.Context(), req)
	if errors.Is(err, services.ErrDuplicateUser) {
		fail(c, http.StatusOK, "User already exists!")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("UserHandler.Signup.Error")
		fail(c, http.StatusOK, "Signup failed!")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Signup successful!",
	})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	acc, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		fail(c, http.StatusOK, "Invalid credentials!")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("UserHandler.Login.Error")
		fail(c, http.StatusOK, "Login failed!")
		return
	}

	// The client keeps the email and sends it with every later request.
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful!",
		"email":   acc.Email,
	})
}

// Logout has no server-side session to drop.
func (h *UserHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out!",
	})
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		fail(c, http.StatusOK, "No email provided!")
		return
	}

	acc, err := h.accounts.GetAccount(c.Request.Context(), email)
	if errors.Is(err, services.ErrAccountNotFound) {
		fail(c, http.StatusOK, "User not found!")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("UserHandler.GetProfile.Error")
		fail(c, http.StatusInternalServerError, "Server error")
		return
	}

	profile := acc.Profile()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"firstname": profile.FirstName,
		"lastname":  profile.LastName,
		"email":     profile.Email,
		"balance":   profile.Balance,
		"attempts":  profile.Attempts,
	})
}
