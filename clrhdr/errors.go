package clrhdr

import "github.com/pkg/errors"

var (
	// ErrNotFound means the path does not name a readable regular file.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidHeader means the file exists but is not a well-formed managed image.
	ErrInvalidHeader = errors.New("invalid managed header")
)

// Reader loads the header of the managed image at path. Implementations fail
// with an error wrapping ErrNotFound or ErrInvalidHeader, or with any other
// error for unexpected failures.
type Reader interface {
	Read(path string) (*Header, error)
}

// FileReader reads images from the local file system.
type FileReader struct{}

func (FileReader) Read(path string) (*Header, error) {
	return ReadFile(path)
}

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidHeader, format, args...)
}
