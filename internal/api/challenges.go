package api

import (
	"net/http"

	"innovation-crm/internal/crm/challenges"
	"innovation-crm/internal/models"

	"github.com/gin-gonic/gin"
)

type challengeMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *handlers) createChallenge(c *gin.Context) {
	var req challenges.NewChallenge
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email := ""
	if info, ok := tokenInfo(c); ok {
		email = info.Email
	}

	created, err := h.Challenges.Create(c.Request.Context(), currentUser(c), email, req)
	if err != nil {
		// the challenge exists even when the assistant did not answer
		if created != nil {
			_ = c.Error(err)
			respond(c, http.StatusCreated, created)
			return
		}
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, created)
}

func (h *handlers) listChallenges(c *gin.Context) {
	list, err := h.Challenges.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (h *handlers) listChallengeMessages(c *gin.Context) {
	msgs, err := h.Challenges.Messages(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, msgs)
}

func (h *handlers) sendChallengeMessage(c *gin.Context) {
	var req challengeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.Challenges.Send(c.Request.Context(), currentUser(c), c.Param("id"), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, msg)
}

func (h *handlers) publishChallenge(c *gin.Context) {
	var req challenges.Publication
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ch, err := h.Challenges.Publish(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, ch)
}

func (h *handlers) getPublicChallenge(c *gin.Context) {
	ch, err := h.Challenges.GetPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, ch)
}

func (h *handlers) applyToChallenge(c *gin.Context) {
	var req models.StartupApplication
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	app, err := h.Challenges.Apply(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, app)
}
