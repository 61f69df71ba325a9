// Package output renders the uniform JSON envelope used at the process
// boundary: {ok: true, data: …} on success, {ok: false, error, error_code}
// on failure.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"timely/internal/apperr"
)

// Envelope is the wire shape shared by the CLI's --json mode and the hub's
// HTTP responses.
type Envelope struct {
	OK        bool        `json:"ok"`
	Data      any         `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode apperr.Code `json:"error_code,omitempty"`
}

// Success wraps data in a success envelope.
func Success(data any) Envelope {
	return Envelope{OK: true, Data: data}
}

// Failure wraps an error in a failure envelope.
func Failure(err error) Envelope {
	return Envelope{OK: false, Error: err.Error(), ErrorCode: apperr.CodeOf(err)}
}

// PrintJSON writes a pretty success envelope to stdout.
func PrintJSON(data any) {
	printEnvelope(os.Stdout, Success(data))
}

// PrintErrorJSON writes a pretty failure envelope to stderr.
func PrintErrorJSON(err error) {
	printEnvelope(os.Stderr, Failure(err))
}

func printEnvelope(w io.Writer, env Envelope) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
	}
}
