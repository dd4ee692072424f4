package gitstatus

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

const (
	unencodableStatusTemplateConstant = "path %q has %s status %s which cannot be encoded"
	indexSideLabelConstant            = "index"
	workTreeSideLabelConstant         = "work tree"
)

// PathStatus captures the index and work-tree state of a single path.
// RenamedOrCopiedFrom is non-empty only when IndexStatus is StatusRenamed or StatusCopied.
// WorkTreeRenamedFrom is non-empty only when the work tree alone records the rename, as git
// reports for intent-to-add paths.
type PathStatus struct {
	IndexStatus         StatusCode `yaml:"index" json:"index"`
	WorkTreeStatus      StatusCode `yaml:"work_tree" json:"work_tree"`
	RenamedOrCopiedFrom string     `yaml:"from,omitempty" json:"from,omitempty"`
	WorkTreeRenamedFrom string     `yaml:"work_tree_from,omitempty" json:"work_tree_from,omitempty"`
}

// HasSource reports whether the path was renamed or copied from another path.
func (pathStatus PathStatus) HasSource() bool {
	return len(pathStatus.RenamedOrCopiedFrom) > 0
}

// HasWorkTreeSource reports whether the work tree records a rename the index does not.
func (pathStatus PathStatus) HasWorkTreeSource() bool {
	return len(pathStatus.WorkTreeRenamedFrom) > 0
}

// Source returns the path this entry was renamed or copied from on either side, or an empty string.
func (pathStatus PathStatus) Source() string {
	if pathStatus.HasSource() {
		return pathStatus.RenamedOrCopiedFrom
	}
	return pathStatus.WorkTreeRenamedFrom
}

// carriesSourceField reports whether git follows the record with a source path field.
func (pathStatus PathStatus) carriesSourceField() bool {
	return pathStatus.IndexStatus.CarriesSource() || pathStatus.WorkTreeStatus.CarriesSource()
}

// IsUntracked reports whether the path is untracked.
func (pathStatus PathStatus) IsUntracked() bool {
	return pathStatus.IndexStatus == StatusUntracked && pathStatus.WorkTreeStatus == StatusUntracked
}

// IsIgnored reports whether the path is ignored.
func (pathStatus PathStatus) IsIgnored() bool {
	return pathStatus.IndexStatus == StatusIgnored && pathStatus.WorkTreeStatus == StatusIgnored
}

// IsConflicted reports whether the path is in an unmerged state.
func (pathStatus PathStatus) IsConflicted() bool {
	if pathStatus.IndexStatus == StatusUpdatedUnmerged || pathStatus.WorkTreeStatus == StatusUpdatedUnmerged {
		return true
	}
	if pathStatus.IndexStatus == StatusAdded && pathStatus.WorkTreeStatus == StatusAdded {
		return true
	}
	return pathStatus.IndexStatus == StatusDeleted && pathStatus.WorkTreeStatus == StatusDeleted
}

// IsStaged reports whether the index side records a change.
func (pathStatus PathStatus) IsStaged() bool {
	switch pathStatus.IndexStatus {
	case StatusUnmodified, StatusUntracked, StatusIgnored, StatusUnsupported:
		return false
	default:
		return !pathStatus.IsConflicted()
	}
}

// Report maps destination paths, relative to the repository root, to their status.
type Report map[string]PathStatus

// Paths returns the report keys in lexical order.
func (report Report) Paths() []string {
	paths := make([]string, 0, len(report))
	for path := range report {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// IsClean reports whether the report holds nothing but ignored paths.
func (report Report) IsClean() bool {
	for _, pathStatus := range report {
		if !pathStatus.IsIgnored() {
			return false
		}
	}
	return true
}

// Filter returns a new report holding the entries accepted by the predicate.
func (report Report) Filter(predicate func(path string, pathStatus PathStatus) bool) Report {
	filtered := Report{}
	for path, pathStatus := range report {
		if predicate(path, pathStatus) {
			filtered[path] = pathStatus
		}
	}
	return filtered
}

// Encode writes the report back in porcelain -z form, ordered by path.
// Paths with an unsupported status code cannot be represented and produce an error.
func (report Report) Encode(writer io.Writer) error {
	bufferedWriter := bufio.NewWriter(writer)
	for _, path := range report.Paths() {
		pathStatus := report[path]
		indexByte, indexKnown := pathStatus.IndexStatus.Byte()
		if !indexKnown {
			return fmt.Errorf(unencodableStatusTemplateConstant, path, indexSideLabelConstant, pathStatus.IndexStatus)
		}
		workTreeByte, workTreeKnown := pathStatus.WorkTreeStatus.Byte()
		if !workTreeKnown {
			return fmt.Errorf(unencodableStatusTemplateConstant, path, workTreeSideLabelConstant, pathStatus.WorkTreeStatus)
		}

		bufferedWriter.WriteByte(indexByte)
		bufferedWriter.WriteByte(workTreeByte)
		bufferedWriter.WriteByte(recordSeparatorConstant)
		bufferedWriter.WriteString(path)
		bufferedWriter.WriteByte(recordTerminatorConstant)
		if pathStatus.carriesSourceField() {
			bufferedWriter.WriteString(pathStatus.Source())
			bufferedWriter.WriteByte(recordTerminatorConstant)
		}
	}
	return bufferedWriter.Flush()
}
