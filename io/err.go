package io

import (
	"errors"

	"github.com/ezrec/sim16/translate"
)

var f = translate.From

var (
	// Register map errors
	ErrAddressRange     = errors.New(f("i/o address out of range"))
	ErrAddressDuplicate = errors.New(f("i/o address duplicated"))
	ErrAddressUnknown   = errors.New(f("i/o address unknown"))
	ErrReadOnly         = errors.New(f("i/o register read-only"))

	// Device errors
	ErrLineInvalid   = errors.New(f("interrupt line invalid"))
	ErrNotAttached   = errors.New(f("device not attached"))
	ErrTapeNoInput   = errors.New(f("tape has no input"))
	ErrDisplayLayout = errors.New(f("display layout invalid"))
)

// ErrPort reports a failed I/O register access.
type ErrPort struct {
	Address int
	Err     error
}

func (err *ErrPort) Error() string {
	return f("port %d: %v", err.Address, err.Err)
}

func (err *ErrPort) Unwrap() error {
	return err.Err
}
