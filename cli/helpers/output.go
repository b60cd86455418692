package helpers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Styles groups the lipgloss styles used by text output. The zero value
// renders plain text.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

// NewStyles returns colored styles, or plain ones when color is false.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{
			Title:   plain,
			Label:   plain,
			Muted:   plain,
			Success: plain,
			Warning: plain,
			Error:   plain,
			Box:     plain,
		}
	}
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("69")).
			Padding(0, 1),
	}
}

// TextRenderer turns a result into styled text.
type TextRenderer func(st Styles) string

// OutputWriter writes command results in the selected mode.
type OutputWriter struct {
	writer io.Writer
	mode   Mode
	styles Styles
}

func NewOutputWriter(writer io.Writer, mode Mode, color bool) *OutputWriter {
	return &OutputWriter{writer: writer, mode: mode, styles: NewStyles(color)}
}

// Mode returns the output mode.
func (ow *OutputWriter) Mode() Mode {
	return ow.mode
}

// WriteData renders data as JSON or YAML, or calls text in text mode.
func (ow *OutputWriter) WriteData(data any, text TextRenderer) error {
	switch ow.mode {
	case ModeYAML:
		return ow.writeYAML(data)
	case ModeText:
		if text != nil {
			_, err := fmt.Fprintln(ow.writer, text(ow.styles))
			return err
		}
		return ow.writeJSON(data)
	default:
		return ow.writeJSON(data)
	}
}

func (ow *OutputWriter) writeJSON(data any) error {
	encoder := json.NewEncoder(ow.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (ow *OutputWriter) writeYAML(data any) error {
	// Round trip through JSON so the json tags define the field names.
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	encoder := yaml.NewEncoder(ow.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return encoder.Close()
}
