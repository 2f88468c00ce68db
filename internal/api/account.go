package api

import (
	"net/http"

	"innovation-crm/internal/crm/account"

	"github.com/gin-gonic/gin"
)

type planRequest struct {
	Plan string `json:"plan" binding:"required"`
}

func identity(c *gin.Context) account.Identity {
	id := account.Identity{UserID: currentUser(c)}
	if info, ok := tokenInfo(c); ok {
		id.Email = info.Email
		id.EmailVerified = info.EmailVerified
	}
	return id
}

func (h *handlers) register(c *gin.Context) {
	var req account.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Account.Register(c.Request.Context(), identity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, p)
}

func (h *handlers) verifyEmail(c *gin.Context) {
	if err := h.Account.VerifyEmail(c.Request.Context(), identity(c)); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"emailVerified": true})
}

func (h *handlers) listPlans(c *gin.Context) {
	respond(c, http.StatusOK, account.Plans())
}

func (h *handlers) activatePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	usage, err := h.Account.ActivatePlan(c.Request.Context(), identity(c), req.Plan)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, usage)
}

func (h *handlers) getUsage(c *gin.Context) {
	usage, err := h.Account.Usage(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, usage)
}

func (h *handlers) listConsents(c *gin.Context) {
	records, err := h.Account.ListConsents(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, records)
}

func (h *handlers) deleteAccount(c *gin.Context) {
	if err := h.Account.DeleteAccount(c.Request.Context(), identity(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
