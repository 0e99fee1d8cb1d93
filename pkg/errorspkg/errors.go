// Package errorspkg provides common app errors.
package errorspkg

import (
	"errors"
	"fmt"
)

var (
	// ErrInternal indicates internal server error.
	ErrInternal = errors.New("internal")
	// ErrStorage indicates that the underlying persistence layer failed.
	ErrStorage = errors.New("storage failure")
)

// Storage wraps err as a storage failure keeping the original error in the chain.
func Storage(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrStorage, err)
}
