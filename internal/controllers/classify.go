// Package controllers – file classification helpers.
//
// Classification is a local convenience only: it pre-fills the document type
// from the filename and MIME type, and the server's own pipeline remains the
// authority once the file is ingested.
package controllers

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/maventax/maven-client/internal/domain"
)

// allowedMimeTypes is the ingestion allow-list. Anything else is rejected
// before any network traffic.
var allowedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/vnd.ms-excel": {},
}

// AllowedMimeType reports whether mime is accepted for ingestion.
func AllowedMimeType(mime string) bool {
	_, ok := allowedMimeTypes[strings.ToLower(strings.TrimSpace(mime))]
	return ok
}

// SuggestDocumentType guesses a classification from the filename and MIME
// type. Filename cues win over MIME cues since they are more specific.
func SuggestDocumentType(filename, mime string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "bank") || strings.Contains(name, "statement"):
		return domain.DocTypeBankStatement
	case strings.Contains(name, "invoice"):
		return domain.DocTypeInvoice
	}
	mime = strings.ToLower(mime)
	switch {
	case strings.Contains(mime, "pdf"):
		return domain.DocTypeTaxReturn
	case strings.HasPrefix(mime, "image/"):
		return domain.DocTypeReceipt
	}
	return domain.DocTypeOther
}

var titleCaser = cases.Title(language.English)

// DocumentTypeLabel renders a classification constant as display text.
// Abbreviations stay upper-case; everything else is title-cased.
func DocumentTypeLabel(t string) string {
	switch t {
	case domain.DocTypeVAT:
		return "VAT Return"
	case domain.DocTypeWHT:
		return "WHT Certificate"
	}
	return titleCaser.String(strings.ReplaceAll(t, "_", " "))
}
