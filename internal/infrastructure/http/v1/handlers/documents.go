// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docnum/internal/core/apperror"
	"docnum/internal/core/doctype"
	"docnum/internal/core/id"
	"docnum/internal/domain/documents"
	"docnum/internal/infrastructure/http/v1/dto"
)

// DocumentsHandler serves document-creation and listing endpoints for
// all document types. The type is part of the URL path.
type DocumentsHandler struct {
	*BaseHandler
	service *documents.Service
}

// NewDocumentsHandler creates a documents handler.
func NewDocumentsHandler(service *documents.Service) *DocumentsHandler {
	return &DocumentsHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// docType parses the :type path parameter.
func (h *DocumentsHandler) docType(c *gin.Context) (doctype.Type, bool) {
	t, err := doctype.Parse(c.Param("type"))
	if err != nil {
		h.Error(c, apperror.NewValidation("unknown document type").
			WithDetail("type", c.Param("type")))
		return 0, false
	}
	return t, true
}

// Create handles POST /documents/:type.
func (h *DocumentsHandler) Create(c *gin.Context) {
	t, ok := h.docType(c)
	if !ok {
		return
	}

	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc := documents.New(t, req.Date, req.Party, req.Amount)
	doc.Notes = req.Notes

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.NewDocumentResponse(doc))
}

// Get handles GET /documents/:type/:id.
func (h *DocumentsHandler) Get(c *gin.Context) {
	t, ok := h.docType(c)
	if !ok {
		return
	}

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid document id").
			WithDetail("id", c.Param("id")))
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if doc.Type != t {
		h.Error(c, apperror.NewNotFound("document", docID))
		return
	}

	h.OK(c, dto.NewDocumentResponse(doc))
}

// List handles GET /documents/:type.
func (h *DocumentsHandler) List(c *gin.Context) {
	t, ok := h.docType(c)
	if !ok {
		return
	}

	var query dto.ListDocumentsQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := h.buildFilter(t, query)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListDocumentsResponse(result))
}

func (h *DocumentsHandler) buildFilter(t doctype.Type, query dto.ListDocumentsQuery) (documents.ListFilter, error) {
	filter := documents.DefaultListFilter()
	filter.Type = &t
	filter.Party = query.Party

	if query.Status != "" {
		status := documents.Status(query.Status)
		if !status.Valid() {
			return filter, apperror.NewValidation("unknown status").
				WithDetail("status", query.Status)
		}
		filter.Status = &status
	}

	for _, d := range []struct {
		raw  string
		dest **time.Time
	}{
		{query.DateFrom, &filter.DateFrom},
		{query.DateTo, &filter.DateTo},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", d.raw)
		if err != nil {
			return filter, apperror.NewValidation("invalid date").
				WithDetail("date", d.raw)
		}
		*d.dest = &parsed
	}

	if query.OrderBy != "" {
		filter.OrderBy = query.OrderBy
	}
	if query.Limit > 0 {
		filter.Limit = query.Limit
	}
	if query.Offset > 0 {
		filter.Offset = query.Offset
	}
	return filter, nil
}

// UpdateStatus handles POST /documents/:type/:id/status.
func (h *DocumentsHandler) UpdateStatus(c *gin.Context) {
	if _, ok := h.docType(c); !ok {
		return
	}

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid document id").
			WithDetail("id", c.Param("id")))
		return
	}

	var req dto.UpdateStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.UpdateStatus(c.Request.Context(), docID, documents.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewDocumentResponse(doc))
}

// Delete handles DELETE /documents/:type/:id.
func (h *DocumentsHandler) Delete(c *gin.Context) {
	if _, ok := h.docType(c); !ok {
		return
	}

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid document id").
			WithDetail("id", c.Param("id")))
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
