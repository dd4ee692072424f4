package ui

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gitasync/pkg/gitstatus"
)

// StatusFormat selects how repository status reports are rendered.
type StatusFormat string

// Supported status formats.
const (
	StatusFormatAuto      StatusFormat = "auto"
	StatusFormatTable     StatusFormat = "table"
	StatusFormatYAML      StatusFormat = "yaml"
	StatusFormatPorcelain StatusFormat = "porcelain"
)

const (
	unsupportedStatusFormatTemplateConstant = "unsupported status format: %s"
	statusTableIndexHeaderConstant          = "INDEX"
	statusTableWorkTreeHeaderConstant       = "WORK TREE"
	statusTablePathHeaderConstant           = "PATH"
	statusTableCleanLabelConstant           = "clean"
	statusTableRowIndentConstant            = "  "
	statusTableColumnGapConstant            = "  "
	statusTableSourceTemplateConstant       = "%s <- %s"
	statusTableLineTerminatorConstant       = "\n"
	stagedColorConstant                     = "2"
	unstagedColorConstant                   = "1"
	conflictColorConstant                   = "5"
	mutedColorConstant                      = "8"
)

// ErrPorcelainRequiresSingleRepository indicates porcelain output was requested for several repositories.
var ErrPorcelainRequiresSingleRepository = errors.New("porcelain format supports a single repository")

// StatusFormats lists the selectable status formats in help order.
func StatusFormats() []string {
	return []string{string(StatusFormatAuto), string(StatusFormatTable), string(StatusFormatYAML), string(StatusFormatPorcelain)}
}

// RepositoryStatus pairs a repository path with its parsed status report.
type RepositoryStatus struct {
	Path    string           `yaml:"repository"`
	Clean   bool             `yaml:"clean"`
	Entries gitstatus.Report `yaml:"entries"`
}

// Equal reports whether both statuses describe the same repository in the same state.
func (repositoryStatus RepositoryStatus) Equal(other RepositoryStatus) bool {
	return repositoryStatus.Path == other.Path &&
		repositoryStatus.Clean == other.Clean &&
		maps.Equal(repositoryStatus.Entries, other.Entries)
}

// NewRepositoryStatus builds a RepositoryStatus, deriving the clean flag from the report.
func NewRepositoryStatus(path string, report gitstatus.Report) RepositoryStatus {
	if report == nil {
		report = gitstatus.Report{}
	}
	return RepositoryStatus{Path: path, Clean: report.IsClean(), Entries: report}
}

// ResolveStatusFormat turns the auto format into table for interactive output and porcelain otherwise.
func ResolveStatusFormat(requestedFormat StatusFormat, interactive bool) (StatusFormat, error) {
	normalizedFormat := StatusFormat(strings.ToLower(strings.TrimSpace(string(requestedFormat))))
	switch normalizedFormat {
	case StatusFormatAuto, "":
		if interactive {
			return StatusFormatTable, nil
		}
		return StatusFormatPorcelain, nil
	case StatusFormatTable, StatusFormatYAML, StatusFormatPorcelain:
		return normalizedFormat, nil
	default:
		return "", fmt.Errorf(unsupportedStatusFormatTemplateConstant, requestedFormat)
	}
}

// IsInteractiveWriter reports whether the writer is a terminal.
func IsInteractiveWriter(writer io.Writer) bool {
	file, isFile := writer.(*os.File)
	if !isFile {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// StatusRenderer writes repository status reports in the selected format.
type StatusRenderer struct {
	writer        io.Writer
	headerStyle   lipgloss.Style
	stagedStyle   lipgloss.Style
	unstagedStyle lipgloss.Style
	conflictStyle lipgloss.Style
	mutedStyle    lipgloss.Style
	plainStyle    lipgloss.Style
}

// NewStatusRenderer constructs a renderer whose colors follow the writer's terminal capabilities.
func NewStatusRenderer(writer io.Writer) *StatusRenderer {
	styleRenderer := lipgloss.NewRenderer(writer)
	return &StatusRenderer{
		writer:        writer,
		headerStyle:   styleRenderer.NewStyle().Bold(true),
		stagedStyle:   styleRenderer.NewStyle().Foreground(lipgloss.Color(stagedColorConstant)),
		unstagedStyle: styleRenderer.NewStyle().Foreground(lipgloss.Color(unstagedColorConstant)),
		conflictStyle: styleRenderer.NewStyle().Foreground(lipgloss.Color(conflictColorConstant)).Bold(true),
		mutedStyle:    styleRenderer.NewStyle().Foreground(lipgloss.Color(mutedColorConstant)),
		plainStyle:    styleRenderer.NewStyle(),
	}
}

// Render writes the statuses using a concrete format; auto must be resolved first.
func (statusRenderer *StatusRenderer) Render(format StatusFormat, statuses []RepositoryStatus) error {
	switch format {
	case StatusFormatTable:
		return statusRenderer.renderTable(statuses)
	case StatusFormatYAML:
		return statusRenderer.renderYAML(statuses)
	case StatusFormatPorcelain:
		return statusRenderer.renderPorcelain(statuses)
	default:
		return fmt.Errorf(unsupportedStatusFormatTemplateConstant, format)
	}
}

func (statusRenderer *StatusRenderer) renderYAML(statuses []RepositoryStatus) error {
	encoder := yaml.NewEncoder(statusRenderer.writer)
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(statuses); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

func (statusRenderer *StatusRenderer) renderPorcelain(statuses []RepositoryStatus) error {
	switch len(statuses) {
	case 0:
		return nil
	case 1:
		return statuses[0].Entries.Encode(statusRenderer.writer)
	default:
		return ErrPorcelainRequiresSingleRepository
	}
}

func (statusRenderer *StatusRenderer) renderTable(statuses []RepositoryStatus) error {
	var builder strings.Builder
	for statusIndex, repositoryStatus := range statuses {
		if statusIndex > 0 {
			builder.WriteString(statusTableLineTerminatorConstant)
		}

		builder.WriteString(statusRenderer.headerStyle.Render(repositoryStatus.Path))
		if repositoryStatus.Clean {
			builder.WriteString(statusTableColumnGapConstant)
			builder.WriteString(statusRenderer.mutedStyle.Render(statusTableCleanLabelConstant))
			builder.WriteString(statusTableLineTerminatorConstant)
			continue
		}
		builder.WriteString(statusTableLineTerminatorConstant)
		statusRenderer.writeTableRows(&builder, repositoryStatus.Entries)
	}

	_, writeError := io.WriteString(statusRenderer.writer, builder.String())
	return writeError
}

type statusTableCell struct {
	text  string
	style lipgloss.Style
}

func (statusRenderer *StatusRenderer) writeTableRows(builder *strings.Builder, report gitstatus.Report) {
	rows := [][]statusTableCell{{
		{text: statusTableIndexHeaderConstant, style: statusRenderer.headerStyle},
		{text: statusTableWorkTreeHeaderConstant, style: statusRenderer.headerStyle},
		{text: statusTablePathHeaderConstant, style: statusRenderer.headerStyle},
	}}
	for _, path := range report.Paths() {
		pathStatus := report[path]
		pathLabel := path
		if source := pathStatus.Source(); len(source) > 0 {
			pathLabel = fmt.Sprintf(statusTableSourceTemplateConstant, path, source)
		}
		rows = append(rows, []statusTableCell{
			{text: pathStatus.IndexStatus.String(), style: statusRenderer.indexStyle(pathStatus)},
			{text: pathStatus.WorkTreeStatus.String(), style: statusRenderer.workTreeStyle(pathStatus)},
			{text: pathLabel, style: statusRenderer.plainStyle},
		})
	}

	columnWidths := make([]int, len(rows[0]))
	for _, row := range rows {
		for columnIndex, cell := range row {
			columnWidths[columnIndex] = max(columnWidths[columnIndex], lipgloss.Width(cell.text))
		}
	}

	for _, row := range rows {
		builder.WriteString(statusTableRowIndentConstant)
		for columnIndex, cell := range row {
			builder.WriteString(cell.style.Render(cell.text))
			if columnIndex == len(row)-1 {
				continue
			}
			builder.WriteString(strings.Repeat(" ", columnWidths[columnIndex]-lipgloss.Width(cell.text)))
			builder.WriteString(statusTableColumnGapConstant)
		}
		builder.WriteString(statusTableLineTerminatorConstant)
	}
}

func (statusRenderer *StatusRenderer) indexStyle(pathStatus gitstatus.PathStatus) lipgloss.Style {
	switch {
	case pathStatus.IsConflicted():
		return statusRenderer.conflictStyle
	case pathStatus.IsStaged():
		return statusRenderer.stagedStyle
	default:
		return statusRenderer.mutedStyle
	}
}

func (statusRenderer *StatusRenderer) workTreeStyle(pathStatus gitstatus.PathStatus) lipgloss.Style {
	switch {
	case pathStatus.IsConflicted():
		return statusRenderer.conflictStyle
	case pathStatus.IsUntracked(), pathStatus.IsIgnored(), pathStatus.WorkTreeStatus == gitstatus.StatusUnmodified:
		return statusRenderer.mutedStyle
	default:
		return statusRenderer.unstagedStyle
	}
}
