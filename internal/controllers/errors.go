// Package controllers – sentinel errors.
package controllers

import "errors"

// Exported sentinel errors returned by the controllers. Callers branch on
// them with errors.Is; anything else they receive is a typed API error.
var (
	// ErrEmptyMessage is returned when a conversation turn contains only
	// whitespace.
	ErrEmptyMessage = errors.New("controllers: message is empty")

	// ErrBusy is returned when an operation is rejected because an earlier
	// one is still in flight.
	ErrBusy = errors.New("controllers: request already in flight")

	// ErrClosed is returned when an operation is invoked after Close.
	ErrClosed = errors.New("controllers: controller closed")

	// ErrInvalidFileType is returned when a selected file's MIME type is not
	// accepted for ingestion.
	ErrInvalidFileType = errors.New("controllers: unsupported file type")

	// ErrFileTooLarge is returned when a selected file exceeds the upload
	// size cap.
	ErrFileTooLarge = errors.New("controllers: file exceeds size limit")

	// ErrNotSelected is returned when Upload is invoked without a validated
	// selection.
	ErrNotSelected = errors.New("controllers: no file selected")

	// ErrUploadFinished is returned when a finished ingestion job is reused.
	ErrUploadFinished = errors.New("controllers: upload already completed")

	// ErrNothingSelected is returned when a bulk operation is invoked with an
	// empty selection.
	ErrNothingSelected = errors.New("controllers: no documents selected")

	// ErrConfirmationDeclined is returned when the user rejects a destructive
	// operation's confirmation prompt.
	ErrConfirmationDeclined = errors.New("controllers: confirmation declined")
)
