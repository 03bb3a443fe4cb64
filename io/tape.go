package io

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/event"
)

// TapePorts are the I/O addresses of the tape registers.
type TapePorts struct {
	Status int `toml:"tape_status"`
	Data   int `toml:"tape_data"`
}

// DefaultTapePorts are the conventional tape addresses.
var DefaultTapePorts = TapePorts{Status: 7, Data: 8}

const (
	TAPE_READY = 1 << 0 // TAPE_STATUS: an input byte is waiting
	TAPE_EOF   = 1 << 1 // TAPE_STATUS: input is exhausted
)

// Tape provides sequential byte I/O. It wraps an io.Reader for input and
// an io.Writer for output. Input is read one byte at a time, only when the
// program looks at TAPE_STATUS or TAPE_DATA.
type Tape struct {
	Verbose bool
	Ports   TapePorts
	Input   io.Reader
	Output  io.Writer

	hasInput  bool
	lastInput byte
	eof       bool

	io *Map
}

// NewTape creates a tape device.
func NewTape(ports TapePorts) *Tape {
	return &Tape{Ports: ports}
}

// Attach registers the tape registers in the I/O map.
func (tc *Tape) Attach(m *Map) (err error) {
	tc.Reset()

	_, err = m.Add("TAPE_STATUS", tc.Ports.Status, READ_ONLY, 0, tc)
	if err != nil {
		return
	}

	_, err = m.Add("TAPE_DATA", tc.Ports.Data, READ_WRITE, 0, tc)
	if err != nil {
		return
	}

	tc.io = m
	return
}

// Reset forgets any prefetched input. Rewind is not possible on a tape.
func (tc *Tape) Reset() {
	tc.hasInput = false
	tc.lastInput = 0
	tc.eof = false
}

// prefetch reads the next input byte, if none is waiting.
func (tc *Tape) prefetch() {
	if tc.hasInput || tc.eof {
		return
	}

	if tc.Input == nil {
		tc.eof = true
		return
	}

	var one [1]byte
	for {
		n, err := tc.Input.Read(one[:])
		if n == 1 {
			tc.lastInput = one[0]
			tc.hasInput = true
			return
		}
		if err != nil {
			if tc.Verbose && !errors.Is(err, io.EOF) {
				logrus.WithError(err).Debug("tape: input")
			}
			tc.eof = true
			return
		}
	}
}

// Receive returns the next input byte.
func (tc *Tape) Receive() (value byte, err error) {
	tc.prefetch()
	if !tc.hasInput {
		err = ErrTapeNoInput
		return
	}

	value = tc.lastInput
	tc.hasInput = false
	return
}

// Send writes a byte to the output stream.
func (tc *Tape) Send(value byte) (err error) {
	if tc.Output == nil {
		return
	}

	_, err = tc.Output.Write([]byte{value})
	return
}

// Status returns the TAPE_STATUS bits.
func (tc *Tape) Status() (status uint16) {
	tc.prefetch()
	if tc.hasInput {
		status |= TAPE_READY
	}
	if tc.eof && !tc.hasInput {
		status |= TAPE_EOF
	}
	return
}

// Notify moves bytes between the registers and the streams.
func (tc *Tape) Notify(reg *Register, access event.Access) (err error) {
	if tc.io == nil {
		err = ErrNotAttached
		return
	}

	switch {
	case reg.Address == tc.Ports.Status && access == event.ACCESS_READ:
		err = tc.io.Set(tc.Ports.Status, tc.Status())
	case reg.Address == tc.Ports.Data && access == event.ACCESS_READ:
		var value byte
		value, err = tc.Receive()
		if errors.Is(err, ErrTapeNoInput) {
			// Reading past the end yields zero; TAPE_STATUS reports EOF.
			value, err = 0, nil
		}
		if err != nil {
			return
		}
		err = tc.io.Set(tc.Ports.Data, uint16(value))
	case reg.Address == tc.Ports.Data && access == event.ACCESS_WRITE:
		err = tc.Send(byte(reg.Value))
	}

	if tc.Verbose && err == nil {
		logrus.WithFields(logrus.Fields{
			"register": reg.Name,
			"access":   access.String(),
			"value":    reg.Value,
		}).Debug("tape: access")
	}

	return
}
