package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"flipball-backend/internal/models"
	"flipball-backend/internal/services"
)

type GameHandler struct {
	accounts *services.AccountService
	game     *services.GameService
	log      logrus.FieldLogger
}

func NewGameHandler(accounts *services.AccountService, game *services.GameService, log logrus.FieldLogger) *GameHandler {
	return &GameHandler{
		accounts: accounts,
		game:     game,
		log:      log,
	}
}

type playResponse struct {
	Success bool `json:"success"`
	*models.PlayResult
}

func (h *GameHandler) GetBalance(c *gin.Context) {
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
		h.log.WithError(err).Error("GameHandler.GetBalance.Error")
		fail(c, http.StatusOK, "Failed to fetch balance")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"balance":  acc.Balance,
		"attempts": acc.Attempts,
	})
}

func (h *GameHandler) UpdateBalance(c *gin.Context) {
	var req models.UpdateBalanceRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := h.accounts.UpdateLedger(c.Request.Context(), req.Email, models.LedgerUpdate{
		Balance:  req.Balance,
		Attempts: req.Attempts,
	})
	if errors.Is(err, services.ErrAccountNotFound) {
		fail(c, http.StatusOK, "User not found!")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("GameHandler.UpdateBalance.Error")
		fail(c, http.StatusOK, "Error updating balance")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Balance updated!",
	})
}

func (h *GameHandler) AddFunds(c *gin.Context) {
	var req models.AddFundsRequest
	if !bindJSON(c, &req) {
		return
	}

	acc, err := h.accounts.AddFunds(c.Request.Context(), req.Email, req.Amount)
	switch {
	case errors.Is(err, services.ErrBelowMinimum):
		fail(c, http.StatusOK, "Minimum "+models.FormatCurrency(decimal.NewFromInt(models.MinimumTopUp))+" required!")
		return
	case errors.Is(err, services.ErrAccountNotFound):
		fail(c, http.StatusOK, "User not found")
		return
	case err != nil:
		h.log.WithError(err).Error("GameHandler.AddFunds.Error")
		fail(c, http.StatusOK, "Failed to add funds")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"balance":  acc.Balance,
		"attempts": acc.Attempts,
	})
}

func (h *GameHandler) Play(c *gin.Context) {
	var req models.PlayRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.Email == "" {
		fail(c, http.StatusBadRequest, "Missing email!")
		return
	}

	result, err := h.game.Play(c.Request.Context(), req.Email, req.Bet, req.Choice)
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		fail(c, http.StatusOK, "User not found!")
		return
	case errors.Is(err, services.ErrNoAttemptsLeft):
		fail(c, http.StatusOK, "No attempts left! Add more funds to play again.")
		return
	case errors.Is(err, services.ErrInsufficientBalance):
		fail(c, http.StatusOK, "Insufficient balance!")
		return
	case err != nil:
		h.log.WithError(err).Error("GameHandler.Play.Error")
		fail(c, http.StatusOK, "Error playing game")
		return
	}

	c.JSON(http.StatusOK, playResponse{
		Success:    true,
		PlayResult: result,
	})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		fail(c, http.StatusOK, "No email provided!")
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil {
		limit = models.DefaultHistoryLimit
	}

	transactions, err := h.accounts.History(c.Request.Context(), email, limit)
	if errors.Is(err, services.ErrAccountNotFound) {
		fail(c, http.StatusOK, "User not found!")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("GameHandler.GetHistory.Error")
		fail(c, http.StatusOK, "Failed to get history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": transactions,
		"count":        len(transactions),
	})
}
