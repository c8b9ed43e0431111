package importer

// messages.go maps technical errors to user-facing messages with support
// codes. Codes are grouped by category:
//
//	FILE001-FILE099  file handling (size, type, encoding, sheets)
//	VAL001-VAL099    row format (columns, price, date)
//	REF001-REF099    row references (payer, apartment)
//	IMP001-IMP099    run-level failures (currency, persistence, capacity)
//	DB001-DB099      database failures
//	ERR000           fallback
//
// Patterns are matched case-insensitively with strings.Contains against the
// full error chain text. The first match wins, so specific patterns come
// before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Row format
	{
		pattern: "invalid number of columns",
		msg: UserMessage{
			Message: "Row does not have exactly 8 columns",
			Action:  "Check for missing or extra separators in this row",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid price value",
		msg: UserMessage{
			Message: "Invalid price format",
			Action:  "Use a plain decimal such as 12.50 or 12,50",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid month value",
		msg: UserMessage{
			Message: "Invalid date format",
			Action:  "Use DD-MM-YYYY, for example 01-01-2001",
			Code:    "VAL003",
		},
	},

	// Row references
	{
		pattern: "payer by email",
		msg: UserMessage{
			Message: "No user with this email exists",
			Action:  "Check the email or register the user first",
			Code:    "REF001",
		},
	},
	{
		pattern: "apartment by account number",
		msg: UserMessage{
			Message: "No apartment with this account number exists",
			Action:  "Check the account number or create the apartment first",
			Code:    "REF002",
		},
	},

	// File handling
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Unsupported file type",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file with UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or XLSX file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with properly closed quotes",
			Code:    "FILE005",
		},
	},
	{
		pattern: "invalid xlsx",
		msg: UserMessage{
			Message: "File is not a valid spreadsheet",
			Action:  "Re-save the workbook as .xlsx and try again",
			Code:    "FILE005",
		},
	},
	{
		pattern: "file does not have sheet",
		msg: UserMessage{
			Message: "Spreadsheet has no readable sheet",
			Action:  "Put the payments on the first sheet of the workbook",
			Code:    "FILE006",
		},
	},

	// Run level
	{
		pattern: "default currency not found",
		msg: UserMessage{
			Message: "Default payment currency is not configured",
			Action:  "Contact an administrator to add the configured currency",
			Code:    "IMP001",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "Too many imports in progress",
			Action:  "Please wait a moment and try again",
			Code:    "IMP003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Import was cancelled",
			Action:  "Please try again",
			Code:    "IMP004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Import timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "IMP005",
		},
	},

	// Database
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "The file contains the same payment twice",
			Action:  "Remove duplicate rows and import again",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure users and apartments exist before importing",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "persist payments",
		msg: UserMessage{
			Message: "Payments could not be saved; nothing was imported",
			Action:  "Fix the reported problem and import the file again",
			Code:    "IMP002",
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

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a user-facing message.
// Returns the zero UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as a single line for CLI output.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
