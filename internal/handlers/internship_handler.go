package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internboard/internal/middleware"
	"internboard/internal/models"
	"internboard/internal/pdf"
	"internboard/internal/services"
)

var deadlineLayouts = []string{"2006-01-02", "2006-01-02T15:04"}

var dashboardNotices = map[string]string{
	"not-authorized": "You can only delete internships you posted.",
	"not-found":      "That internship no longer exists.",
}

type InternshipHandler struct {
	internships services.InternshipService
	exporter    *pdf.BoardExporter
	log         *zap.Logger
}

func NewInternshipHandler(internships services.InternshipService, exporter *pdf.BoardExporter, log *zap.Logger) *InternshipHandler {
	return &InternshipHandler{
		internships: internships,
		exporter:    exporter,
		log:         log.Named("internships"),
	}
}

func (h *InternshipHandler) Dashboard(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)
	items, err := h.internships.List(c.Request.Context(), 0, models.ListOrder(c.Query("order")))
	if err != nil {
		internalError(c, h.log, "list internships failed", err)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"title":       "Dashboard",
		"user_name":   sess.Email,
		"user_id":     sess.UserID,
		"internships": items,
		"error":       dashboardNotices[c.Query("error")],
	})
}

func (h *InternshipHandler) NewPage(c *gin.Context) {
	c.HTML(http.StatusOK, "post_internship.html", gin.H{
		"title": "Post an internship",
		"form":  models.InternshipInput{},
	})
}

func (h *InternshipHandler) Create(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	input := models.InternshipInput{
		Company:     c.PostForm("company"),
		Batch:       c.PostForm("batch"),
		Description: c.PostForm("description"),
		Link:        c.PostForm("link"),
	}
	rawDeadline := c.PostForm("deadline")
	page := gin.H{"title": "Post an internship", "form": input, "deadline": rawDeadline}

	deadline, ok := parseDeadline(rawDeadline)
	if !ok {
		page["error"] = "Enter a valid deadline."
		c.HTML(http.StatusBadRequest, "post_internship.html", page)
		return
	}
	input.Deadline = deadline

	_, err := h.internships.Create(c.Request.Context(), userID, input)
	switch {
	case errors.Is(err, services.ErrInvalidListing):
		page["error"] = "All fields are required and the link must start with http:// or https://."
		c.HTML(http.StatusBadRequest, "post_internship.html", page)
		return
	case errors.Is(err, services.ErrInvalidDeadline):
		page["error"] = "Deadline must be in the future."
		c.HTML(http.StatusBadRequest, "post_internship.html", page)
		return
	case err != nil:
		internalError(c, h.log, "create internship failed", err)
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *InternshipHandler) Show(c *gin.Context) {
	userID, _ := getUserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	in, err := h.internships.Get(c.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		internalError(c, h.log, "get internship failed", err)
		return
	}
	c.HTML(http.StatusOK, "internship.html", gin.H{
		"title":      in.Company,
		"internship": in,
		"user_id":    userID,
	})
}

// Delete serves both DELETE /internship/:id and the HTML form fallback.
func (h *InternshipHandler) Delete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/dashboard?error=not-found")
		return
	}

	err := h.internships.Delete(c.Request.Context(), id, userID)
	switch {
	case errors.Is(err, services.ErrForbidden):
		h.log.Warn("delete refused", zap.Int64("id", id), zap.Int64("user_id", userID))
		c.Redirect(http.StatusSeeOther, "/dashboard?error=not-authorized")
		return
	case errors.Is(err, services.ErrNotFound):
		c.Redirect(http.StatusSeeOther, "/dashboard?error=not-found")
		return
	case err != nil:
		internalError(c, h.log, "delete internship failed", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *InternshipHandler) ExportPDF(c *gin.Context) {
	items, err := h.internships.List(c.Request.Context(), 0, models.OrderDeadline)
	if err != nil {
		internalError(c, h.log, "list internships failed", err)
		return
	}
	var buf bytes.Buffer
	if err := h.exporter.Render(&buf, items, time.Now()); err != nil {
		internalError(c, h.log, "pdf export failed", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="internships.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *InternshipHandler) notFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.html", gin.H{
		"title": "Not found",
		"error": "That internship does not exist.",
	})
}

// parseDeadline reads an HTML date or datetime-local value as UTC.
func parseDeadline(raw string) (time.Time, bool) {
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
