package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/temirov/git-global/internal/repos/shared"
)

// Format selects the report rendering.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const (
	failureLineTemplateConstant       = "error (%s): %s"
	aheadSingularTemplateConstant     = "%d commit ahead"
	aheadPluralTemplateConstant       = "%d commits ahead"
	listColumnGapConstant             = 2
	minimumPathColumnWidthConstant    = 8
	jsonIndentConstant                = "  "
	unsupportedFormatTemplateConstant = "unsupported output format %q"
	writerMissingMessageConstant      = "report writer not configured"
)

// ErrWriterNotConfigured indicates a renderer without an output writer.
var ErrWriterNotConfigured = errors.New(writerMissingMessageConstant)

// ParseFormat validates a format name.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf(unsupportedFormatTemplateConstant, raw)
	}
}

// TerminalWidth reports the column count of the file when it is a terminal.
func TerminalWidth(file *os.File) (int, bool) {
	if file == nil {
		return 0, false
	}
	fileDescriptor := int(file.Fd())
	if !term.IsTerminal(fileDescriptor) {
		return 0, false
	}
	width, _, sizeError := term.GetSize(fileDescriptor)
	if sizeError != nil || width <= 0 {
		return 0, false
	}
	return width, true
}

// Renderer writes reports in the configured format.
type Renderer struct {
	writer        io.Writer
	format        Format
	terminalWidth int
}

// NewRenderer constructs a Renderer. A terminalWidth of zero means the width is unknown.
func NewRenderer(writer io.Writer, format Format, terminalWidth int) (*Renderer, error) {
	if writer == nil {
		return nil, ErrWriterNotConfigured
	}
	if _, formatError := ParseFormat(string(format)); formatError != nil {
		return nil, formatError
	}
	if len(format) == 0 {
		format = FormatText
	}
	return &Renderer{writer: writer, format: format, terminalWidth: terminalWidth}, nil
}

// Render writes the report.
func (renderer *Renderer) Render(report Report) error {
	if renderer.format == FormatJSON {
		return renderer.renderJSON(report)
	}
	return renderer.renderText(report)
}

// RenderError writes a fatal error in the configured format.
func (renderer *Renderer) RenderError(failure error) error {
	if renderer.format == FormatJSON {
		return writeJSON(renderer.writer, jsonErrorDocument{Error: true, Message: failure.Error()})
	}
	_, writeError := fmt.Fprintln(renderer.writer, failure.Error())
	return writeError
}

func (renderer *Renderer) renderText(report Report) error {
	var output strings.Builder
	for _, message := range report.Messages {
		output.WriteString(message)
		output.WriteString("\n")
	}

	relevantEntries := report.RelevantEntries()
	if report.Kind == shared.QueryKindList {
		renderer.writeList(&output, relevantEntries)
	} else {
		for entryIndex, entry := range relevantEntries {
			if entryIndex > 0 && report.Kind.StatusLike() {
				output.WriteString("\n")
			}
			output.WriteString(entry.Repository.Path)
			output.WriteString("\n")
			for _, line := range entryLines(report.Kind, entry.Outcome) {
				output.WriteString(line)
				output.WriteString("\n")
			}
		}
	}

	_, writeError := io.WriteString(renderer.writer, output.String())
	return writeError
}

func (renderer *Renderer) writeList(output *strings.Builder, entries []Entry) {
	if renderer.terminalWidth <= 0 {
		for _, entry := range entries {
			output.WriteString(entry.Repository.Path)
			if entry.Outcome.Failed() {
				output.WriteString("\n")
				output.WriteString(failureLine(entry.Outcome.Failure))
			}
			output.WriteString("\n")
		}
		return
	}

	nameWidth := 0
	for _, entry := range entries {
		if width := lipgloss.Width(entry.Repository.Name()); width > nameWidth {
			nameWidth = width
		}
	}
	nameColumnWidth := nameWidth + listColumnGapConstant
	pathColumnWidth := renderer.terminalWidth - nameColumnWidth
	if pathColumnWidth < minimumPathColumnWidthConstant {
		pathColumnWidth = minimumPathColumnWidthConstant
	}

	nameStyle := lipgloss.NewStyle().Width(nameColumnWidth)
	pathStyle := lipgloss.NewStyle().MaxWidth(pathColumnWidth)
	for _, entry := range entries {
		pathCell := entry.Repository.Path
		if entry.Outcome.Failed() {
			pathCell = failureLine(entry.Outcome.Failure)
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top, nameStyle.Render(entry.Repository.Name()), pathStyle.Render(pathCell))
		output.WriteString(strings.TrimRight(row, " "))
		output.WriteString("\n")
	}
}

func entryLines(kind shared.QueryKind, outcome shared.Outcome) []string {
	if outcome.Failed() {
		return []string{failureLine(outcome.Failure)}
	}
	if kind == shared.QueryKindAhead {
		template := aheadPluralTemplateConstant
		if outcome.Findings.AheadCount == 1 {
			template = aheadSingularTemplateConstant
		}
		return []string{fmt.Sprintf(template, outcome.Findings.AheadCount)}
	}
	return outcome.Findings.Lines
}

func failureLine(failure *shared.Failure) string {
	return fmt.Sprintf(failureLineTemplateConstant, failure.Reason, failure.Message)
}

type jsonDocument struct {
	Error        bool             `json:"error"`
	Command      string           `json:"command"`
	Messages     []string         `json:"messages"`
	Repositories []jsonRepository `json:"repositories"`
}

type jsonRepository struct {
	Path    string       `json:"path"`
	Lines   []string     `json:"lines"`
	Ahead   int          `json:"ahead"`
	Failure *jsonFailure `json:"failure,omitempty"`
}

type jsonFailure struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type jsonErrorDocument struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func (renderer *Renderer) renderJSON(report Report) error {
	document := jsonDocument{
		Command:      string(report.Kind),
		Messages:     append([]string{}, report.Messages...),
		Repositories: []jsonRepository{},
	}
	for _, entry := range report.RelevantEntries() {
		repository := jsonRepository{
			Path:  entry.Repository.Path,
			Lines: append([]string{}, entry.Outcome.Findings.Lines...),
			Ahead: entry.Outcome.Findings.AheadCount,
		}
		if entry.Outcome.Failed() {
			repository.Failure = &jsonFailure{Reason: string(entry.Outcome.Failure.Reason), Message: entry.Outcome.Failure.Message}
		}
		document.Repositories = append(document.Repositories, repository)
	}
	return writeJSON(renderer.writer, document)
}

func writeJSON(writer io.Writer, document any) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(document)
}
