// Package io provides the I/O register space of the machine and the devices
// attached to it.
//
// The I/O space is separate from main memory and is only reached by the IN
// and OUT instructions. Each register has a fixed address in 0..65535, a
// permission, and optionally a Device that is notified synchronously of
// every access. The devices are the interrupt controller (Pic), the
// countdown Timer, the Keypad and the Tape serial line. The Display is a
// memory-mapped device that owns a main memory region instead.
package io

import (
	"fmt"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/event"
)

// ADDRESS_LIMIT is one past the highest I/O address.
const ADDRESS_LIMIT = 0x10000

//go:generate go tool stringer -linecomment -type=Permission

// Permission of an I/O register.
type Permission int

const (
	READ_WRITE = Permission(0) // rw
	READ_ONLY  = Permission(1) // ro
)

// Device reacts to accesses of the registers it owns. Notify runs before a
// load and after a store, on the same call stack as the instruction
// performing it.
type Device interface {
	Notify(reg *Register, access event.Access) error
}

// Register is a named I/O register.
type Register struct {
	Name       string
	Address    int
	Permission Permission
	Value      uint16
	Device     Device
}

func (reg *Register) String() string {
	return fmt.Sprintf("%v@%d %v 0x%04x", reg.Name, reg.Address, reg.Permission, reg.Value)
}

// Map is the I/O register space.
type Map struct {
	Verbose bool
	Sink    event.Sink

	register map[int]*Register
}

// NewMap creates an empty I/O register space.
func NewMap() *Map {
	return &Map{
		register: make(map[int]*Register),
	}
}

// Reset removes every register.
func (m *Map) Reset() {
	clear(m.register)
}

// Add registers a new I/O register.
func (m *Map) Add(name string, address int, perm Permission, initial uint16, dev Device) (reg *Register, err error) {
	if address < 0 || address >= ADDRESS_LIMIT {
		err = &ErrPort{Address: address, Err: ErrAddressRange}
		return
	}

	if m.register == nil {
		m.register = make(map[int]*Register)
	}

	if _, ok := m.register[address]; ok {
		err = &ErrPort{Address: address, Err: ErrAddressDuplicate}
		return
	}

	reg = &Register{
		Name:       name,
		Address:    address,
		Permission: perm,
		Value:      initial,
		Device:     dev,
	}
	m.register[address] = reg

	if m.Verbose {
		logrus.WithField("register", reg.String()).Debug("io: add")
	}

	return
}

// Remove drops the register at address.
func (m *Map) Remove(address int) (err error) {
	if _, ok := m.register[address]; !ok {
		err = &ErrPort{Address: address, Err: ErrAddressUnknown}
		return
	}

	delete(m.register, address)
	return
}

// Register returns the register at address, or nil.
func (m *Map) Register(address int) *Register {
	return m.register[address]
}

// Registers returns every register, ordered by address.
func (m *Map) Registers() (regs []*Register) {
	for _, address := range slices.Sorted(maps.Keys(m.register)) {
		regs = append(regs, m.register[address])
	}
	return
}

func (m *Map) lookup(address int) (reg *Register, err error) {
	reg, ok := m.register[address]
	if !ok {
		err = &ErrPort{Address: address, Err: ErrAddressUnknown}
	}
	return
}

// Load reads the register at address. The owning device is notified
// first, so it may refresh the value being read.
func (m *Map) Load(address int) (value uint16, err error) {
	reg, err := m.lookup(address)
	if err != nil {
		return
	}

	if reg.Device != nil {
		err = reg.Device.Notify(reg, event.ACCESS_READ)
		if err != nil {
			return
		}
	}

	value = reg.Value

	event.Publish(m.Sink, event.Io{Name: reg.Name, Address: address, Value: value, Access: event.ACCESS_READ})

	return
}

// Store writes the register at address. A privileged store (from an OUT
// instruction) to a read-only register fails.
func (m *Map) Store(address int, value uint16, privileged bool) (err error) {
	reg, err := m.lookup(address)
	if err != nil {
		return
	}

	if privileged && reg.Permission == READ_ONLY {
		err = &ErrPort{Address: address, Err: ErrReadOnly}
		return
	}

	reg.Value = value

	event.Publish(m.Sink, event.Io{Name: reg.Name, Address: address, Value: value, Access: event.ACCESS_WRITE})

	if reg.Device != nil {
		err = reg.Device.Notify(reg, event.ACCESS_WRITE)
	}

	return
}

// Set updates a register from inside its device. It bypasses the
// permission check and does not notify the device.
func (m *Map) Set(address int, value uint16) (err error) {
	reg, err := m.lookup(address)
	if err != nil {
		return
	}

	reg.Value = value

	event.Publish(m.Sink, event.Io{Name: reg.Name, Address: address, Value: value, Access: event.ACCESS_UPDATE})

	return
}
