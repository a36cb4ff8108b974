package banksync

import (
	"errors"
	"fmt"

	"ledgerly/internal/domain/bankaccount"
)

var (
	// ErrNotLinked is returned when the targeted account or item holds no usable access credential.
	ErrNotLinked = errors.New("no usable access credential")
	// ErrItemNotFound is returned when no local account references the item.
	ErrItemNotFound = errors.New("no accounts found for item")
)

// UpstreamError wraps a failed aggregator call.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("aggregator %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the referenced local entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, bankaccount.ErrAccountNotFound) || errors.Is(err, ErrItemNotFound)
}

// IsUpstream reports whether err originates from the aggregator.
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}
