package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when the table lacks an input column.
	ErrMissingColumn = errors.New("missing column")
	// ErrNoTable is returned when there is no table to process.
	ErrNoTable = errors.New("no table to process")
)

// ConfigurationError means the batch could not start. No row was processed.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err stopped a batch before it started.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
