package cpu

import (
	"fmt"
	"strings"
)

// StatusBit is a named bit of the status register.
type StatusBit int

const (
	SR_HALT       = StatusBit(0)  // HALT
	SR_FAULT      = StatusBit(1)  // FAULT
	SR_ZERO       = StatusBit(2)  // ZERO
	SR_CARRY      = StatusBit(3)  // CARRY
	SR_IRQMASK    = StatusBit(4)  // IRQMASK
	SR_SUPERVISOR = StatusBit(15) // SUPERVISOR
)

var statusBits = []struct {
	bit    StatusBit
	name   string
	letter byte
}{
	{SR_SUPERVISOR, "SUPERVISOR", 'S'},
	{SR_IRQMASK, "IRQMASK", 'I'},
	{SR_CARRY, "CARRY", 'C'},
	{SR_ZERO, "ZERO", 'Z'},
	{SR_FAULT, "FAULT", 'F'},
	{SR_HALT, "HALT", 'H'},
}

func (bit StatusBit) String() string {
	for _, sb := range statusBits {
		if sb.bit == bit {
			return sb.name
		}
	}
	return fmt.Sprintf("SR%d", int(bit))
}

// Mask returns the bit as a status register mask.
func (bit StatusBit) Mask() Status {
	return Status(1) << bit
}

// Status is a status register value. The named bits are always computed
// from the raw value.
type Status uint16

// Has returns true if the bit is set.
func (st Status) Has(bit StatusBit) bool {
	return (st & bit.Mask()) != 0
}

// With returns the status with the bit set or cleared.
func (st Status) With(bit StatusBit, on bool) Status {
	if on {
		return st | bit.Mask()
	}
	return st &^ bit.Mask()
}

// String shows the named bits as letters, '-' when clear.
func (st Status) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "0x%04x ", uint16(st))
	for _, bit := range statusBits {
		if st.Has(bit.bit) {
			sb.WriteByte(bit.letter)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Flag returns a status register bit.
func (bank *Bank) Flag(bit StatusBit) bool {
	return bank.SR().Has(bit)
}

// SetFlag sets or clears a status register bit.
func (bank *Bank) SetFlag(bit StatusBit, on bool) {
	sr := bank.SR()
	if sr.Has(bit) == on {
		return
	}
	bank.SetSR(sr.With(bit, on))
}

// isStatusName returns true if the name is a status bit name.
func isStatusName(name string) bool {
	name = strings.ToUpper(name)
	for _, sb := range statusBits {
		if sb.name == name {
			return true
		}
	}
	return false
}
