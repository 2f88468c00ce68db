package api

import (
	"encoding/json"
	"net/http"

	"innovation-crm/internal/crm/stages"
	"innovation-crm/internal/models"

	"github.com/gin-gonic/gin"
)

type reorderRequest struct {
	DraggedID string `json:"draggedId" binding:"required"`
	TargetID  string `json:"targetId" binding:"required"`
}

func (h *handlers) listStages(c *gin.Context) {
	list, err := h.Stages.LoadStages(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// saveStages replaces the whole list. The raw body is checked against the
// stage list schema before it is decoded.
func (h *handlers) saveStages(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		badRequest(c, err)
		return
	}
	if err := stages.ValidateStageList(raw); err != nil {
		respondError(c, err)
		return
	}

	var list []models.PipelineStage
	if err := json.Unmarshal(body, &list); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := h.Stages.SaveStages(c.Request.Context(), currentUser(c), list)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, saved)
}

func (h *handlers) addStage(c *gin.Context) {
	var stage models.PipelineStage
	if err := c.ShouldBindJSON(&stage); err != nil {
		badRequest(c, err)
		return
	}
	added, err := h.Stages.AddStage(c.Request.Context(), currentUser(c), stage)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, added)
}

func (h *handlers) editStage(c *gin.Context) {
	var stage models.PipelineStage
	if err := c.ShouldBindJSON(&stage); err != nil {
		badRequest(c, err)
		return
	}
	stage.ID = c.Param("stageId")
	edited, err := h.Stages.EditStage(c.Request.Context(), currentUser(c), stage)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, edited)
}

func (h *handlers) deleteStage(c *gin.Context) {
	deleted, err := h.Stages.DeleteStage(c.Request.Context(), currentUser(c), c.Param("stageId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"startupsDeleted": deleted})
}

func (h *handlers) reorderStages(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.Stages.ReorderStages(c.Request.Context(), currentUser(c), req.DraggedID, req.TargetID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}
