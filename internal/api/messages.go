package api

import (
	"errors"
	"net/http"

	"innovation-crm/internal/common/auth"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/crm/composer"
	"innovation-crm/internal/models"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message     string `json:"message" binding:"required"`
	SessionID   string `json:"sessionId"`
	IsAnonymous bool   `json:"isAnonymous"`
	ChallengeID string `json:"challengeId"`
}

type profileRequest struct {
	Name    string `json:"name" binding:"required"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
}

func (h *handlers) sendMessage(c *gin.Context) {
	var req composer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.StartupID = c.Param("id")

	msg, err := h.Composer.Send(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, msg)
}

func (h *handlers) listTimeline(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.Board.GetStartup(ctx, currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	messages, err := h.Timeline.List(ctx, currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, messages)
}

func (h *handlers) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ChallengeID != "" {
		msg, err := h.Challenges.Send(c.Request.Context(), currentUser(c), req.ChallengeID, req.Message)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, msg)
		return
	}
	if h.Assistant == nil {
		respondError(c, apperrors.NewExternalServiceError("assistant", errors.New("assistant not configured")))
		return
	}
	reply, err := h.Assistant.Ask(c.Request.Context(), req.Message, req.SessionID, req.IsAnonymous)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, reply)
}

func (h *handlers) getProfile(c *gin.Context) {
	p, err := h.Profiles.Profile(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (h *handlers) saveProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p := models.UserProfile{Name: req.Name, Company: req.Company, Phone: req.Phone}
	if info, ok := tokenInfo(c); ok {
		p.Email = info.Email
	}

	ctx := c.Request.Context()
	if err := h.Profiles.SaveProfile(ctx, currentUser(c), p); err != nil {
		respondError(c, err)
		return
	}
	saved, err := h.Profiles.Profile(ctx, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, saved)
}

func tokenInfo(c *gin.Context) (*auth.TokenInfo, bool) {
	v, ok := c.Get(tokenInfoKey)
	if !ok {
		return nil, false
	}
	info, ok := v.(*auth.TokenInfo)
	return info, ok
}
