//go:build !unix

package main

import (
	"errors"

	"github.com/ezrec/sim16/emulator"
)

var ErrKeypadTerminal = errors.New(f("keypad mode needs a unix terminal"))

func runKeypad(emu *emulator.Emulator, steps int) error {
	return ErrKeypadTerminal
}
