package api

import (
	"net/http"

	"innovation-crm/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listContacts(c *gin.Context) {
	list, err := h.Contacts.List(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (h *handlers) addContact(c *gin.Context) {
	var contact models.Contact
	if err := c.ShouldBindJSON(&contact); err != nil {
		badRequest(c, err)
		return
	}
	added, err := h.Contacts.Add(c.Request.Context(), currentUser(c), c.Param("id"), contact)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, added)
}

func (h *handlers) updateContact(c *gin.Context) {
	var contact models.Contact
	if err := c.ShouldBindJSON(&contact); err != nil {
		badRequest(c, err)
		return
	}
	contact.ID = c.Param("cid")
	updated, err := h.Contacts.Update(c.Request.Context(), currentUser(c), c.Param("id"), contact)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, updated)
}

func (h *handlers) deleteContact(c *gin.Context) {
	if err := h.Contacts.Delete(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("cid")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
