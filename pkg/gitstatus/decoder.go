package gitstatus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	recordTerminatorConstant byte = 0
	recordSeparatorConstant  byte = ' '
)

const (
	statusPrefixLengthConstant  = 3
	parseErrorTemplateConstant  = "malformed status output at byte %d: %s"
	readFailureTemplateConstant = "failed to read status output: %w"
)

const (
	missingTerminatorReasonConstant = "record is missing its NUL terminator"
	shortRecordReasonConstant       = "record is shorter than its status prefix"
	missingSeparatorReasonConstant  = "status codes are not followed by a space"
	emptyPathReasonConstant         = "record has an empty path"
	missingSourceReasonConstant     = "renamed or copied record is missing its source path"
	emptySourceReasonConstant       = "renamed or copied record has an empty source path"
)

// ParseError reports status output that violates the porcelain record framing.
type ParseError struct {
	Offset int64
	Reason string
}

// Error implements error.
func (parseError *ParseError) Error() string {
	return fmt.Sprintf(parseErrorTemplateConstant, parseError.Offset, parseError.Reason)
}

// Entry is a single decoded status record.
type Entry struct {
	Path   string
	Status PathStatus
}

// Decoder reads porcelain -z status records from a stream.
type Decoder struct {
	reader      *bufio.Reader
	offset      int64
	stickyError error
}

// NewDecoder constructs a Decoder reading from the supplied reader.
func NewDecoder(reader io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(reader)}
}

// Parse decodes a complete status buffer. Empty input yields an empty report.
func Parse(raw []byte) (Report, error) {
	return NewDecoder(bytes.NewReader(raw)).Decode()
}

// Decode consumes the remaining stream and returns the accumulated report.
// When a path appears more than once the last record wins.
func (decoder *Decoder) Decode() (Report, error) {
	report := Report{}
	for {
		entry, nextError := decoder.Next()
		if errors.Is(nextError, io.EOF) {
			return report, nil
		}
		if nextError != nil {
			return nil, nextError
		}
		report[entry.Path] = entry.Status
	}
}

// Next returns the next record, or io.EOF once the stream ends cleanly on a record boundary.
// After a failure every subsequent call returns the same error.
func (decoder *Decoder) Next() (Entry, error) {
	if decoder.stickyError != nil {
		return Entry{}, decoder.stickyError
	}
	entry, nextError := decoder.next()
	if nextError != nil {
		decoder.stickyError = nextError
	}
	return entry, nextError
}

func (decoder *Decoder) next() (Entry, error) {
	recordOffset := decoder.offset
	recordBytes, readError := decoder.readField(true)
	if readError != nil {
		return Entry{}, readError
	}

	if len(recordBytes) < statusPrefixLengthConstant {
		return Entry{}, &ParseError{Offset: recordOffset, Reason: shortRecordReasonConstant}
	}
	if recordBytes[2] != recordSeparatorConstant {
		return Entry{}, &ParseError{Offset: recordOffset + 2, Reason: missingSeparatorReasonConstant}
	}

	destinationPath := string(recordBytes[statusPrefixLengthConstant:])
	if len(destinationPath) == 0 {
		return Entry{}, &ParseError{Offset: recordOffset, Reason: emptyPathReasonConstant}
	}

	pathStatus := PathStatus{
		IndexStatus:    StatusCodeFromByte(recordBytes[0]),
		WorkTreeStatus: StatusCodeFromByte(recordBytes[1]),
	}

	if pathStatus.carriesSourceField() {
		sourceOffset := decoder.offset
		sourceBytes, sourceError := decoder.readField(false)
		if sourceError != nil {
			var parseError *ParseError
			if errors.As(sourceError, &parseError) {
				parseError.Reason = missingSourceReasonConstant
			}
			return Entry{}, sourceError
		}
		if len(sourceBytes) == 0 {
			return Entry{}, &ParseError{Offset: sourceOffset, Reason: emptySourceReasonConstant}
		}
		if pathStatus.IndexStatus.CarriesSource() {
			pathStatus.RenamedOrCopiedFrom = string(sourceBytes)
		} else {
			pathStatus.WorkTreeRenamedFrom = string(sourceBytes)
		}
	}

	return Entry{Path: destinationPath, Status: pathStatus}, nil
}

// readField returns the bytes up to the next NUL, excluding the terminator.
// A clean end of stream is reported as io.EOF only when allowEndOfStream is set.
func (decoder *Decoder) readField(allowEndOfStream bool) ([]byte, error) {
	fieldOffset := decoder.offset
	fieldBytes, readError := decoder.reader.ReadBytes(recordTerminatorConstant)
	decoder.offset += int64(len(fieldBytes))

	if readError == nil {
		return fieldBytes[:len(fieldBytes)-1], nil
	}
	if !errors.Is(readError, io.EOF) {
		return nil, fmt.Errorf(readFailureTemplateConstant, readError)
	}
	if len(fieldBytes) == 0 && allowEndOfStream {
		return nil, io.EOF
	}
	return nil, &ParseError{Offset: fieldOffset, Reason: missingTerminatorReasonConstant}
}
