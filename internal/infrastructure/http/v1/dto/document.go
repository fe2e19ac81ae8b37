// Package dto defines HTTP request and response shapes.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"docnum/internal/domain/documents"
)

// CreateDocumentRequest is the body for creating any document type.
// The type itself comes from the URL path; the number is always
// assigned by the server.
type CreateDocumentRequest struct {
	Date   time.Time       `json:"date" binding:"required"`
	Party  string          `json:"party" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes"`
}

// UpdateStatusRequest moves a document through its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListDocumentsQuery holds query parameters for document listings.
type ListDocumentsQuery struct {
	Status   string `form:"status"`
	Party    string `form:"party"`
	DateFrom string `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   string `form:"dateTo" time_format:"2006-01-02"`
	OrderBy  string `form:"orderBy"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// DocumentResponse is the API representation of a document.
type DocumentResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Number    string          `json:"number"`
	Date      time.Time       `json:"date"`
	Party     string          `json:"party"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Notes     string          `json:"notes,omitempty"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewDocumentResponse maps a domain document to its API shape.
func NewDocumentResponse(doc *documents.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID.String(),
		Type:      doc.Type.String(),
		Number:    doc.Number,
		Date:      doc.Date,
		Party:     doc.Party,
		Amount:    doc.Amount,
		Status:    string(doc.Status),
		Notes:     doc.Notes,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// ListDocumentsResponse is a paginated document listing.
type ListDocumentsResponse struct {
	Items      []DocumentResponse `json:"items"`
	TotalCount int64              `json:"totalCount"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// NewListDocumentsResponse maps a domain list result to its API shape.
func NewListDocumentsResponse(result documents.ListResult) ListDocumentsResponse {
	items := make([]DocumentResponse, 0, len(result.Items))
	for _, doc := range result.Items {
		items = append(items, NewDocumentResponse(doc))
	}
	return ListDocumentsResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
}
