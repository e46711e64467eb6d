package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/internal/services"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation ran and failed (rejected, ledger error, timeout)
	ExitCommandError = 2 // bad flags, config or input
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that are not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// exitCodeOf picks the exit code for an operation error.
func exitCodeOf(err error) int {
	if services.IsInputError(err) || errors.Is(err, services.ErrNoWallet) {
		return ExitCommandError
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope.
type CLIResponse struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	Category string      `json:"category,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// Outcome prints the plain-language result of an operation.
func (f *OutputFormatter) Outcome(out models.Outcome) error {
	if f.Format == "json" {
		status := "ok"
		if !out.Success() {
			status = "error"
		}
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:   status,
			Message:  out.Message(),
			Category: services.Category(out.Err),
			Data:     out,
		})
	}
	_, err := fmt.Fprintln(f.Writer, out.Message())
	return err
}

// Tokens prints a discovery listing.
func (f *OutputFormatter) Tokens(tokens []models.TokenSummary) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: tokens})
	}
	if len(tokens) == 0 {
		_, err := fmt.Fprintln(f.Writer, "No tokens found.")
		return err
	}
	for _, t := range tokens {
		line := fmt.Sprintf("%-12s %-10s %s  %s", t.Name, t.Symbol, t.UIAmount, t.Mint)
		if t.Placeholder {
			line += "  (metadata unavailable)"
		}
		if _, err := fmt.Fprintln(f.Writer, line); err != nil {
			return err
		}
	}
	return nil
}

// Metadata prints one token's metadata.
func (f *OutputFormatter) Metadata(mint string, md *models.TokenMetadata) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: md})
	}
	_, err := fmt.Fprintf(f.Writer, "Mint:   %s\nName:   %s\nSymbol: %s\nURI:    %s\nImage:  %s\n",
		mint, md.Name, md.Symbol, md.URI, md.ImageURI)
	return err
}

// Error prints a failure that happened before any operation ran.
func (f *OutputFormatter) Error(err error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:   "error",
			Message:  err.Error(),
			Category: services.Category(err),
		})
	}
	_, werr := fmt.Fprintf(f.Writer, "Error: %v\n", err)
	return werr
}
