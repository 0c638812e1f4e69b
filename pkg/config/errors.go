package config

import (
	"errors"
	"fmt"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")

	// ErrRootNotSequence indicates a document whose root is not a sequence of blocks.
	ErrRootNotSequence = errors.New("loaded YAML root node must be a sequence, check provided YAML")
	// ErrUnknownProperty indicates a key that is not valid anywhere.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrMisplacedProperty indicates a known key used in the wrong object.
	ErrMisplacedProperty = errors.New("misplaced property")
	// ErrInvalidType indicates a value of the wrong YAML kind or format.
	ErrInvalidType = errors.New("invalid property value")
	// ErrMissingProperty indicates a required key that is absent.
	ErrMissingProperty = errors.New("missing property")
	// ErrDuplicateUUID indicates two lifecycles or two proxy configs sharing a uuid.
	ErrDuplicateUUID = errors.New("duplicate uuid")
	// ErrDuplicateURL indicates two web socket configs sharing a url.
	ErrDuplicateURL = errors.New("duplicate url")
)

// ValidationError is returned when the YAML tree does not describe a valid
// configuration. The message names the offending value; Unwrap exposes the
// sentinel for errors.Is.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(sentinel error, format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...), Err: sentinel}
}

// asValidation wraps an error from a model constructor, keeping its message.
func asValidation(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return &ValidationError{Msg: err.Error(), Err: err}
}

// LoadError represents an error reading a specific file.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FileWarning reports a 'file' reference that could not be read. Loading
// continues with empty or placeholder content.
type FileWarning struct {
	Path string
	Err  error
}

func (w FileWarning) String() string {
	return fmt.Sprintf("could not load file from path: %s: %v", w.Path, w.Err)
}
