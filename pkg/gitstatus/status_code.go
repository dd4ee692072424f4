package gitstatus

// StatusCode identifies the state of a path on one side (index or work tree) of a status record.
type StatusCode string

// Known status codes.
const (
	StatusUnmodified      StatusCode = "unmodified"
	StatusModified        StatusCode = "modified"
	StatusAdded           StatusCode = "added"
	StatusDeleted         StatusCode = "deleted"
	StatusRenamed         StatusCode = "renamed"
	StatusCopied          StatusCode = "copied"
	StatusUpdatedUnmerged StatusCode = "updated_unmerged"
	StatusUntracked       StatusCode = "untracked"
	StatusIgnored         StatusCode = "ignored"
	StatusUnsupported     StatusCode = "unsupported"
)

var statusCodesByByte = map[byte]StatusCode{
	' ': StatusUnmodified,
	'M': StatusModified,
	'A': StatusAdded,
	'D': StatusDeleted,
	'R': StatusRenamed,
	'C': StatusCopied,
	'U': StatusUpdatedUnmerged,
	'?': StatusUntracked,
	'!': StatusIgnored,
}

var statusBytesByCode = func() map[StatusCode]byte {
	reversed := make(map[StatusCode]byte, len(statusCodesByByte))
	for statusByte, statusCode := range statusCodesByByte {
		reversed[statusCode] = statusByte
	}
	return reversed
}()

// StatusCodeFromByte decodes a single porcelain status byte. Unknown bytes decode to StatusUnsupported.
func StatusCodeFromByte(statusByte byte) StatusCode {
	statusCode, known := statusCodesByByte[statusByte]
	if !known {
		return StatusUnsupported
	}
	return statusCode
}

// Byte returns the porcelain byte for the code. The boolean is false for StatusUnsupported
// and for values outside the known set, which have no faithful byte representation.
func (statusCode StatusCode) Byte() (byte, bool) {
	statusByte, known := statusBytesByCode[statusCode]
	return statusByte, known
}

// String implements fmt.Stringer.
func (statusCode StatusCode) String() string {
	return string(statusCode)
}

// CarriesSource reports whether a record with this status on either side is followed by a source path field.
func (statusCode StatusCode) CarriesSource() bool {
	return statusCode == StatusRenamed || statusCode == StatusCopied
}
