package io

import (
	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/event"
)

// KeypadPorts are the I/O addresses of the keypad registers.
type KeypadPorts struct {
	Status int `toml:"keypad_status"`
	Data   int `toml:"keypad_data"`
}

// DefaultKeypadPorts are the conventional keypad addresses.
var DefaultKeypadPorts = KeypadPorts{Status: 3, Data: 4}

// KEYPAD_LINE is the interrupt line of the keypad.
const KEYPAD_LINE = 0

// KEYPAD_READY is the KEYPAD_STATUS bit set while a key is waiting.
const KEYPAD_READY = 1

// Keypad is a single-key buffer holding its interrupt line asserted until
// the program reads KEYPAD_DATA.
type Keypad struct {
	Verbose bool
	Ports   KeypadPorts
	Line    int
	Pic     *Pic

	ready bool
	key   uint16

	io *Map
}

// NewKeypad creates a keypad raising its interrupt on pic.
func NewKeypad(ports KeypadPorts, pic *Pic) *Keypad {
	return &Keypad{
		Ports: ports,
		Line:  KEYPAD_LINE,
		Pic:   pic,
	}
}

// Attach registers the keypad registers in the I/O map.
func (kp *Keypad) Attach(m *Map) (err error) {
	kp.Reset()

	_, err = m.Add("KEYPAD_STATUS", kp.Ports.Status, READ_ONLY, 0, kp)
	if err != nil {
		return
	}

	_, err = m.Add("KEYPAD_DATA", kp.Ports.Data, READ_ONLY, 0, kp)
	if err != nil {
		return
	}

	kp.io = m
	return
}

// Reset drops any waiting key.
func (kp *Keypad) Reset() {
	kp.ready = false
	kp.key = 0
}

// Ready reports whether a key is waiting.
func (kp *Keypad) Ready() bool { return kp.ready }

// Press latches a key and asserts the keypad line. A key that was not yet
// read is overwritten.
func (kp *Keypad) Press(key uint16) (err error) {
	kp.key = key
	kp.ready = true

	if kp.Verbose {
		logrus.WithField("key", key).Debug("keypad: press")
	}

	err = kp.sync()
	if err != nil {
		return
	}

	if kp.Pic != nil {
		err = kp.Pic.Raise(kp.Line)
	}

	return
}

// Notify acknowledges the key on a KEYPAD_DATA read.
func (kp *Keypad) Notify(reg *Register, access event.Access) (err error) {
	if access != event.ACCESS_READ || reg.Address != kp.Ports.Data || !kp.ready {
		return
	}

	kp.ready = false

	err = kp.sync()
	if err != nil {
		return
	}

	if kp.Pic != nil {
		err = kp.Pic.Lower(kp.Line)
	}

	return
}

func (kp *Keypad) sync() (err error) {
	if kp.io == nil {
		return
	}

	var status uint16
	if kp.ready {
		status = KEYPAD_READY
	}

	err = kp.io.Set(kp.Ports.Status, status)
	if err != nil {
		return
	}

	return kp.io.Set(kp.Ports.Data, kp.key)
}
