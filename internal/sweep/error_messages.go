// # Error Codes Reference
//
// Every error shown to a user carries a code they can quote when asking
// for help. Pipeline errors are matched by kind; everything else by a
// case-insensitive substring of the error text.
//
// # Pipeline Errors
//
//	FMT001   - Unsupported file type
//	           Action: Upload a .csv or .xlsx file
//	PARSE001 - File could not be read
//	           Action: Check that the file is a valid CSV or Excel workbook
//	COL001   - Column not found
//	           Action: Reselect the columns to keep
//	EXP001   - Export failed
//	           Action: Try the other output format
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large        Patterns: "file too large", "request body too large"
//	FILE002 - No file selected      Patterns: "no file provided"
//	FILE003 - Too many files        Patterns: "too many files"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired        Patterns: "session not found"
//	SES002 - File no longer exists  Patterns: "file not found"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy            Patterns: "too many uploads"
//	UPL004 - Request cancelled      Patterns: "context canceled"
//	UPL005 - Request timeout        Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests     Patterns: "rate limit"
//
// # Request Errors (REQ001)
//
//	REQ001 - Invalid form values    Patterns: "invalid request"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the server log for the technical
// error when a user reports ERR000.
package sweep

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var kindMessages = map[ErrorKind]UserMessage{
	KindUnsupportedFormat: {
		Message: "Unsupported file type",
		Action:  "Upload a .csv or .xlsx file",
		Code:    "FMT001",
	},
	KindParse: {
		Message: "The file could not be read",
		Action:  "Check that the file is a valid CSV or Excel workbook",
		Code:    "PARSE001",
	},
	KindInvalidColumn: {
		Message: "Column not found",
		Action:  "Reselect the columns to keep",
		Code:    "COL001",
	},
	KindSerialization: {
		Message: "Export failed",
		Action:  "Try the other output format",
		Code:    "EXP001",
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are checked in order; the first match wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE003)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks or compress it",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks or compress it",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or Excel file to upload",
			Code:    "FILE002",
		},
	},
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "Too many files in this session",
			Action:  "Remove a file or reset the session before uploading more",
			Code:    "FILE003",
		},
	},

	// =========================================================================
	// Session Errors (SES001-SES002)
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Your session has expired",
			Action:  "Upload your files again",
			Code:    "SES001",
		},
	},
	{
		pattern: "file not found",
		msg: UserMessage{
			Message: "This file is no longer available",
			Action:  "Upload it again",
			Code:    "SES002",
		},
	},

	// =========================================================================
	// Upload Errors (UPL002-UPL005)
	// =========================================================================
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
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
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},

	// =========================================================================
	// Request Errors (REQ001)
	// =========================================================================
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "Some of the submitted values are not valid",
			Action:  "Check your selection and try again",
			Code:    "REQ001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Pipeline
// errors map by kind; other errors by the first matching pattern.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := kindMessages[KindOf(err)]; ok {
		return msg
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

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// Detail returns the part of err worth showing beside the user message,
// such as the rejected extension or the missing column. It is empty for
// errors that carry nothing specific.
func Detail(err error) string {
	var se *Error
	if !errors.As(err, &se) {
		return ""
	}
	switch se.Kind {
	case KindUnsupportedFormat, KindInvalidColumn:
		return se.Detail
	case KindParse, KindSerialization:
		if se.Err != nil {
			return se.Err.Error()
		}
	}
	return ""
}
