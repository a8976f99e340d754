package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internboard/internal/services"
	"internboard/internal/utils"
)

const resetUnauthorizedMsg = "Session expired or unauthorized."

type PasswordResetHandler struct {
	reset   services.PasswordResetService
	tickets *utils.TicketIssuer
	log     *zap.Logger
}

func NewPasswordResetHandler(reset services.PasswordResetService, tickets *utils.TicketIssuer, log *zap.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{
		reset:   reset,
		tickets: tickets,
		log:     log.Named("password-reset"),
	}
}

func (h *PasswordResetHandler) ForgotPage(c *gin.Context) {
	c.HTML(http.StatusOK, "forgot.html", gin.H{"title": "Forgot password"})
}

func (h *PasswordResetHandler) Forgot(c *gin.Context) {
	email := services.NormalizeEmail(c.PostForm("email"))

	err := h.reset.RequestReset(c.Request.Context(), email)
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.HTML(http.StatusNotFound, "forgot.html", gin.H{"title": "Forgot password", "error": "Email not found"})
		return
	case errors.Is(err, services.ErrDispatchFailed):
		h.log.Warn("otp mail not delivered", zap.Error(err))
		c.HTML(http.StatusBadGateway, "forgot.html", gin.H{"title": "Forgot password", "error": "Failed to send OTP. Try again."})
		return
	case err != nil:
		internalError(c, h.log, "otp request failed", err)
		return
	}

	ticket, err := h.tickets.Issue(email, utils.PurposeVerify)
	if err != nil {
		internalError(c, h.log, "ticket issue failed", err)
		return
	}
	c.HTML(http.StatusOK, "verify.html", gin.H{"title": "Verify OTP", "username": email, "ticket": ticket})
}

func (h *PasswordResetHandler) Verify(c *gin.Context) {
	ticket := c.PostForm("ticket")
	email, err := h.tickets.Parse(ticket, utils.PurposeVerify)
	if err != nil {
		c.HTML(http.StatusUnauthorized, "forgot.html", gin.H{"title": "Forgot password", "error": resetUnauthorizedMsg})
		return
	}

	err = h.reset.VerifyOTP(c.Request.Context(), email, c.PostForm("otp"))
	switch {
	case errors.Is(err, services.ErrInvalidOrExpired):
		c.HTML(http.StatusBadRequest, "verify.html", gin.H{
			"title":    "Verify OTP",
			"username": email,
			"ticket":   ticket,
			"error":    "Invalid or expired OTP",
		})
		return
	case err != nil:
		internalError(c, h.log, "otp verify failed", err)
		return
	}

	resetTicket, err := h.tickets.Issue(email, utils.PurposeReset)
	if err != nil {
		internalError(c, h.log, "ticket issue failed", err)
		return
	}
	c.HTML(http.StatusOK, "reset.html", gin.H{"title": "Reset password", "ticket": resetTicket})
}

func (h *PasswordResetHandler) Reset(c *gin.Context) {
	ticket := c.PostForm("ticket")
	email, err := h.tickets.Parse(ticket, utils.PurposeReset)
	if err != nil {
		c.HTML(http.StatusUnauthorized, "reset.html", gin.H{"title": "Reset password", "error": resetUnauthorizedMsg})
		return
	}

	page := gin.H{"title": "Reset password", "ticket": ticket}
	err = h.reset.CompleteReset(c.Request.Context(), email, c.PostForm("password"), c.PostForm("confirm_password"))
	switch {
	case errors.Is(err, services.ErrResetUnauthorized):
		c.HTML(http.StatusUnauthorized, "reset.html", gin.H{"title": "Reset password", "error": resetUnauthorizedMsg})
		return
	case errors.Is(err, services.ErrPasswordMismatch):
		page["error"] = "Passwords do not match."
		c.HTML(http.StatusBadRequest, "reset.html", page)
		return
	case errors.Is(err, services.ErrWeakCredential):
		page["error"] = "Password must be at least 6 characters."
		c.HTML(http.StatusBadRequest, "reset.html", page)
		return
	case err != nil:
		internalError(c, h.log, "password reset failed", err)
		return
	}

	c.HTML(http.StatusOK, "reset.html", gin.H{"title": "Reset password", "message": "Password successfully changed!"})
}
