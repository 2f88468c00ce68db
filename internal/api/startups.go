package api

import (
	"net/http"

	"innovation-crm/internal/models"

	"github.com/gin-gonic/gin"
)

type moveRequest struct {
	StageID string `json:"stageId" binding:"required"`
}

func (h *handlers) listBoard(c *gin.Context) {
	columns, err := h.Board.ListBoard(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, columns)
}

func (h *handlers) saveStartup(c *gin.Context) {
	var startup models.SavedStartup
	if err := c.ShouldBindJSON(&startup); err != nil {
		badRequest(c, err)
		return
	}
	if info, ok := tokenInfo(c); ok && startup.UserEmail == "" {
		startup.UserEmail = info.Email
	}
	saved, err := h.Board.SaveStartup(c.Request.Context(), currentUser(c), &startup)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, saved)
}

func (h *handlers) getStartup(c *gin.Context) {
	startup, err := h.Board.GetStartup(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, startup)
}

func (h *handlers) removeStartup(c *gin.Context) {
	if err := h.Board.RemoveStartup(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// moveStartup answers 200 once the stage is persisted, even when some
// notifications failed. The transition status tells them apart.
func (h *handlers) moveStartup(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tr, err := h.Board.MoveStartup(c.Request.Context(), currentUser(c), c.Param("id"), req.StageID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"status":     tr.Status(),
		"transition": tr,
	})
}
