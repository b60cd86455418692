package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/compozy/specmatch/engine/speclib"
)

// CliError represents a CLI-specific error with a stable code
type CliError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewCliError creates a new CLI error
func NewCliError(code, message string, details ...string) *CliError {
	err := &CliError{Code: code, Message: message}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

func errorCode(err error) string {
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return string(speclib.KindOf(err))
}

// FormatError formats errors based on output mode
func FormatError(err error, mode Mode, st Styles) string {
	if err == nil {
		return ""
	}
	if mode != ModeText {
		return formatErrorJSON(err)
	}
	message, details := err.Error(), ""
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		message, details = cliErr.Message, cliErr.Details
	}
	out := st.Error.Render("error: " + message)
	if details != "" {
		out += "\n" + st.Muted.Render("details: "+details)
	}
	return out
}

func formatErrorJSON(err error) string {
	body := map[string]any{
		"error": err.Error(),
		"code":  errorCode(err),
	}
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		body["error"] = cliErr.Message
		if cliErr.Details != "" {
			body["details"] = cliErr.Details
		}
	}
	out, marshalErr := json.MarshalIndent(body, "", "  ")
	if marshalErr != nil {
		return `{"error": "JSON marshaling failed"}`
	}
	return string(out)
}

// OutputError writes err to w in the appropriate format
func OutputError(w io.Writer, err error, mode Mode) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, FormatError(err, mode, NewStyles(mode == ModeText && ShouldUseColor())))
}
