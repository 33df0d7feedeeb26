package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// triState is an auto|on|off flag value.
type triState string

const (
	triAuto triState = "auto"
	triOn   triState = "on"
	triOff  triState = "off"
)

func parseTriState(value string) (triState, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return triAuto, nil
	case "on", "always", "true":
		return triOn, nil
	case "off", "never", "false":
		return triOff, nil
	default:
		return "", fmt.Errorf("invalid value %q (expected auto|on|off)", value)
	}
}

type uiMode triState

const (
	uiModeAuto = uiMode(triAuto)
	uiModeOn   = uiMode(triOn)
	uiModeOff  = uiMode(triOff)
)

var _ pflag.Value = (*uiMode)(nil)

func (m *uiMode) String() string { return string(*m) }

func (m *uiMode) Set(value string) error {
	v, err := parseTriState(value)
	if err != nil {
		return fmt.Errorf("--ui: %w", err)
	}
	*m = uiMode(v)
	return nil
}

func (m *uiMode) Type() string { return "mode" }

type colorMode triState

const (
	colorAuto = colorMode(triAuto)
	colorOn   = colorMode(triOn)
	colorOff  = colorMode(triOff)
)

var _ pflag.Value = (*colorMode)(nil)

func (m *colorMode) String() string { return string(*m) }

func (m *colorMode) Set(value string) error {
	v, err := parseTriState(value)
	if err != nil {
		return fmt.Errorf("--color: %w", err)
	}
	*m = colorMode(v)
	return nil
}

func (m *colorMode) Type() string { return "mode" }

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout) && isTerminal(os.Stderr)
	}
}

// outputFormat is a closed set of names accepted by --format.
type outputFormat struct {
	value   string
	allowed []string
}

func newOutputFormat(def string, allowed ...string) *outputFormat {
	return &outputFormat{value: def, allowed: allowed}
}

var _ pflag.Value = (*outputFormat)(nil)

func (f *outputFormat) String() string { return f.value }

func (f *outputFormat) Set(value string) error {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, a := range f.allowed {
		if v == a {
			f.value = v
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (must be %s)", value, strings.Join(f.allowed, "|"))
}

func (f *outputFormat) Type() string { return "format" }
