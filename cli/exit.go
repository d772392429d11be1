package cli

// Process exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ExitError carries the exit code of a failed run. An empty Message means
// the failure has already been reported.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func failf(message string) *ExitError {
	return &ExitError{Code: ExitFailure, Message: message}
}
