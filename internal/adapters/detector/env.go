// Package detector picks the log format for the current terminal.
package detector

import (
	"os"

	"golang.org/x/term"
)

// LogFormat is the rendering of log records on stderr.
type LogFormat int

const (
	// FormatAuto defers the choice to DetectEnvironment.
	FormatAuto LogFormat = iota
	// FormatPretty renders colored human-readable lines.
	FormatPretty
	// FormatJSON renders one JSON object per record.
	FormatJSON
)

// DetectEnvironment returns FormatPretty when stderr is a terminal outside CI,
// and FormatJSON otherwise.
func DetectEnvironment() LogFormat {
	return detect(term.IsTerminal(int(os.Stderr.Fd())), os.Getenv("CI"))
}

func detect(isTTY bool, ci string) LogFormat {
	if !isTTY || ci == "true" || ci == "1" {
		return FormatJSON
	}
	return FormatPretty
}

// ResolveFormat applies the user's flag to the detected format.
// userFlag is one of "auto", "pretty", "json" or empty.
func ResolveFormat(detected LogFormat, userFlag string) LogFormat {
	switch userFlag {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return detected
	}
}
