package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeforge/internal/resume"
)

// TemplateHandler 暴露内置模板目录。
type TemplateHandler struct{}

func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

type templateListItem struct {
	ID       string                  `json:"id"`
	Name     string                  `json:"name"`
	Category resume.TemplateCategory `json:"category"`
	Colors   resume.ColorPalette     `json:"colors"`
	Font     resume.FontPair         `json:"font"`
}

// ListTemplates 返回全部内置模板，顺序稳定。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	ids := resume.TemplateIDs()
	items := make([]templateListItem, 0, len(ids))
	for _, id := range ids {
		t, _ := resume.TemplateByID(id)
		items = append(items, templateListItem{
			ID:       id,
			Name:     t.Name,
			Category: t.Category,
			Colors:   t.Colors,
			Font:     t.Font,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetTemplate 返回单个模板详情。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id := c.Param("id")
	t, ok := resume.TemplateByID(id)
	if !ok {
		NotFound(c, "template not found")
		return
	}
	c.JSON(http.StatusOK, templateListItem{
		ID:       id,
		Name:     t.Name,
		Category: t.Category,
		Colors:   t.Colors,
		Font:     t.Font,
	})
}
