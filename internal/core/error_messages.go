package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV: Invalid CSV file: <cause>
//	          Matched by ErrMalformedCSV; the underlying cause is shown
//	FILE003 - Encoding error: File contains invalid characters
//	          Patterns: "encoding error"
//	FILE004 - No file: Please upload a CSV file.
//	          Patterns: "no file provided"
//	FILE005 - Empty file: Uploaded CSV is empty.
//	          Matched by ErrEmptyInput
//	FILE006 - No columns: No columns found in the uploaded file
//	          Matched by ErrNoColumns
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - No table: No table has been uploaded yet
//	         Matched by ErrNoTable
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Storage failure: Could not save or load your table
//	         Patterns: "storage"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	UPL004 - Request cancelled: Request was cancelled
//	UPL005 - Request timeout: Request timed out
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// Sentinel errors are checked first with errors.Is; the remaining patterns
// are matched case-insensitively with strings.Contains, first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoTable is returned when an operation needs a stored table and the
// session has none.
var ErrNoTable = errors.New("no table uploaded")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

// sentinelMessages are matched with errors.Is before any text pattern.
var sentinelMessages = []sentinelMessage{
	{
		target: ErrEmptyInput,
		msg: UserMessage{
			Message: "Uploaded CSV is empty.",
			Action:  "Please upload a CSV file with at least one data row",
			Code:    "FILE005",
		},
	},
	{
		target: ErrNoColumns,
		msg: UserMessage{
			Message: "No columns found in the uploaded file",
			Action:  "Make sure the first line of the file is a header row",
			Code:    "FILE006",
		},
	},
	{
		target: ErrNoTable,
		msg: UserMessage{
			Message: "No table has been uploaded yet",
			Action:  "Upload a CSV file first",
			Code:    "TBL001",
		},
	},
	{
		target: ErrTooManyUploads,
		msg: UserMessage{
			Message: "Too many uploads in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// More specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8 and upload it again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Upload a smaller file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Upload a smaller file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "Please upload a CSV file.",
			Action:  "Choose a CSV file before pressing Upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "storage",
		msg: UserMessage{
			Message: "Could not save or load your table",
			Action:  "Please try again; your previous table is unchanged",
			Code:    "STO001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// Malformed uploads carry their cause into the message. Encoding
	// problems fall through to the more specific FILE003 pattern.
	var pe *ParseError
	if errors.As(err, &pe) && pe.Kind == ErrMalformedCSV && !strings.Contains(err.Error(), "encoding error") {
		return UserMessage{
			Message: "Invalid CSV file: " + err.Error(),
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE002",
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
