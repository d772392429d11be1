package corflags

import (
	"fmt"

	"github.com/pkg/errors"

	"gocorflags/clrhdr"
)

// Error codes shared with the reference CorFlags tool.
const (
	CodeFileNotFound         = 2
	CodeInvalidManagedHeader = 8
	CodeNoDiagnostic         = 998
	CodeUnknownFailure       = 999
)

const (
	msgFileNotFound         = "Could not open file for reading"
	msgInvalidManagedHeader = "The specified file does not have a valid managed header"
	msgNoDiagnostic         = "Unknown error with no exception opening: %s"
	msgUnknownFailure       = "Unknown exception: %s"
	unnumberedErrorFormat   = "error : %s"
)

// ErrModificationUnsupported is returned when flags would have to be
// rewritten. Only reporting is implemented.
var ErrModificationUnsupported = errors.New("changing flags and saving the assembly is not implemented")

// Error is a numbered CorFlags error.
type Error struct {
	Code    int
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("error CF%03d : %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func FileNotFound(cause error) *Error {
	return &Error{Code: CodeFileNotFound, Message: msgFileNotFound, cause: cause}
}

func InvalidManagedHeader(cause error) *Error {
	return &Error{Code: CodeInvalidManagedHeader, Message: msgInvalidManagedHeader, cause: cause}
}

// UnreadableWithNoDiagnostic covers a reader that returned neither a header
// nor an error.
func UnreadableWithNoDiagnostic(path string) *Error {
	return &Error{Code: CodeNoDiagnostic, Message: fmt.Sprintf(msgNoDiagnostic, path)}
}

func UnknownFailure(cause error) *Error {
	return &Error{Code: CodeUnknownFailure, Message: fmt.Sprintf(msgUnknownFailure, cause), cause: cause}
}

// Classify maps a reader error onto the numbered errors.
func Classify(err error) *Error {
	var cf *Error
	switch {
	case errors.As(err, &cf):
		return cf
	case errors.Is(err, clrhdr.ErrNotFound):
		return FileNotFound(err)
	case errors.Is(err, clrhdr.ErrInvalidHeader):
		return InvalidManagedHeader(err)
	default:
		return UnknownFailure(err)
	}
}

// Line formats err as the single line printed for it.
func Line(err error) string {
	if errors.Is(err, ErrModificationUnsupported) {
		return fmt.Sprintf(unnumberedErrorFormat, ErrModificationUnsupported)
	}
	return Classify(err).Error()
}
