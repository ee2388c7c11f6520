package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/themobileprof/medoffice-be/internal/knowledge"
	"github.com/themobileprof/medoffice-be/internal/language"
)

// CatalogHandler exposes the read-only reference data
type CatalogHandler struct {
	base      *knowledge.Base
	languages *language.Manager
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(base *knowledge.Base, languages *language.Manager) *CatalogHandler {
	return &CatalogHandler{base: base, languages: languages}
}

// ListConditions returns every condition of the knowledge base
// GET /api/conditions
func (h *CatalogHandler) ListConditions(c *gin.Context) {
	conditions := h.base.Conditions()
	c.JSON(http.StatusOK, gin.H{
		"conditions": conditions,
		"count":      len(conditions),
	})
}

// GetCondition returns one condition by id
// GET /api/conditions/:id
func (h *CatalogHandler) GetCondition(c *gin.Context) {
	condition, ok := h.base.Condition(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "condition not found"})
		return
	}
	c.JSON(http.StatusOK, condition)
}

// ListLanguages returns the languages suggestions can be written in
// GET /api/languages
func (h *CatalogHandler) ListLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": h.languages.GetSupportedLanguages(),
		"default":   language.DefaultLanguage,
	})
}
