package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSection = errors.New("unknown section")
	ErrNotFound       = errors.New("message not found")
	ErrInvalidInput   = errors.New("invalid input")

	// ErrNotPending is returned when a pending-only transition targets an approved message.
	ErrNotPending = fmt.Errorf("%w: message is not pending", ErrNotFound)
)
