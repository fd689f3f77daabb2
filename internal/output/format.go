// Package output renders CLI results as text or JSON.
package output

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format is how a command prints its result.
type Format string

// Output formats. Auto resolves per command and destination.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// conversational commands print text when auto even if stdout is piped.
// They show a mnemonic or ask for confirmation, so a pipe there usually
// feeds stdin rather than reads stdout.
//
//nolint:gochecknoglobals // fixed lookup table
var conversational = map[string]bool{
	"wallet create":    true,
	"wallet import":    true,
	"wallet remove":    true,
	"send":             true,
	"backup import":    true,
	"biometric enable": true,
}

// Formatter carries the format a command resolved to.
type Formatter struct {
	format Format
}

// NewFormatter wraps an already resolved format.
func NewFormatter(format Format) *Formatter {
	return &Formatter{format: format}
}

// Format returns the resolved format.
func (f *Formatter) Format() Format {
	return f.format
}

// IsJSON reports whether the command should print JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// DetectFormat resolves FormatAuto for command, its path below the root
// such as "wallet list". Terminals get text. Piped output gets JSON unless
// the command is conversational.
func DetectFormat(w io.Writer, explicit Format, command string) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if IsTerminal(w) || conversational[command] {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat reads a --output or config value. Unknown values mean auto.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	}
	return FormatAuto
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd() returns uintptr
}

// WriteJSON encodes v indented, one document per call.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
