package cpu

import (
	"fmt"
	"strings"

	"github.com/ezrec/sim16/event"
)

//go:generate go tool stringer -linecomment -type=RegisterIndex

// RegisterIndex is the encoded index of a register.
type RegisterIndex int

const (
	REG_A   = RegisterIndex(0)  // A
	REG_B   = RegisterIndex(1)  // B
	REG_C   = RegisterIndex(2)  // C
	REG_D   = RegisterIndex(3)  // D
	REG_SP  = RegisterIndex(4)  // SP
	REG_IP  = RegisterIndex(5)  // IP
	REG_SR  = RegisterIndex(6)  // SR
	REG_USP = RegisterIndex(7)  // USP
	REG_SSP = RegisterIndex(8)  // SSP
	REG_AH  = RegisterIndex(9)  // AH
	REG_AL  = RegisterIndex(10) // AL
	REG_BH  = RegisterIndex(11) // BH
	REG_BL  = RegisterIndex(12) // BL
	REG_CH  = RegisterIndex(13) // CH
	REG_CL  = RegisterIndex(14) // CL
	REG_DH  = RegisterIndex(15) // DH
	REG_DL  = RegisterIndex(16) // DL

	REGISTER_COUNT = 17
)

// Valid returns true if the index names a register.
func (reg RegisterIndex) Valid() bool {
	return reg >= 0 && reg < REGISTER_COUNT
}

// Is16 returns true for registers usable as 16-bit instruction operands.
func (reg RegisterIndex) Is16() bool {
	return reg >= REG_A && reg <= REG_SP
}

// Is8 returns true for the 8-bit register halves.
func (reg RegisterIndex) Is8() bool {
	return reg >= REG_AH && reg <= REG_DL
}

// Half is the byte of a 16-bit register selected by an 8-bit register.
type Half int

const (
	HALF_HIGH = Half(0)
	HALF_LOW  = Half(1)
)

// Split returns the parent register and half of an 8-bit register.
func (reg RegisterIndex) Split() (parent RegisterIndex, half Half) {
	n := reg - REG_AH
	parent = REG_A + n/2
	half = Half(n % 2)
	return
}

// RegisterByName looks up a register, ignoring case.
func RegisterByName(name string) (reg RegisterIndex, ok bool) {
	name = strings.ToUpper(name)
	for reg = range RegisterIndex(REGISTER_COUNT) {
		if reg.String() == name {
			ok = true
			return
		}
	}
	reg = 0
	return
}

//go:generate go tool stringer -linecomment -type=StackMode

// StackMode selects which physical stack pointer SP refers to.
type StackMode int

const (
	STACK_USER       = StackMode(0) // user
	STACK_SUPERVISOR = StackMode(1) // supervisor
)

// Register returns the physical stack pointer for the mode.
func (mode StackMode) Register() RegisterIndex {
	if mode == STACK_SUPERVISOR {
		return REG_SSP
	}
	return REG_USP
}

// Bank is the register bank.
//
// Only the physical 16-bit registers hold storage. The 8-bit halves are
// views of A-D, and SP resolves to USP or SSP on every access.
type Bank struct {
	Sink   event.Sink
	OnHalt func() // Called when a write sets SR.HALT.

	value [REG_SSP + 1]uint16
	reset [REG_SSP + 1]uint16
}

// NewBank creates a register bank with all reset values zero.
func NewBank() *Bank {
	return &Bank{}
}

// SetReset sets the power-on value of a physical 16-bit register.
func (bank *Bank) SetReset(reg RegisterIndex, value uint16) (err error) {
	if reg < 0 || reg > REG_SSP || reg == REG_SP {
		err = ErrRegisterInvalid
		return
	}
	bank.reset[reg] = value
	return
}

// Reset restores every register to its power-on value.
func (bank *Bank) Reset() {
	bank.value = bank.reset
}

// StackMode returns the active stack mode.
func (bank *Bank) StackMode() StackMode {
	if bank.Flag(SR_SUPERVISOR) {
		return STACK_SUPERVISOR
	}
	return STACK_USER
}

// Resolve maps SP to the active physical stack pointer.
func (bank *Bank) Resolve(reg RegisterIndex) RegisterIndex {
	if reg == REG_SP {
		return bank.StackMode().Register()
	}
	return reg
}

// Get reads a register.
func (bank *Bank) Get(reg RegisterIndex) (value uint16, err error) {
	switch {
	case reg.Is8():
		parent, half := reg.Split()
		value = uint16(bank.HalfOf(parent, half))
	case reg.Valid():
		value = bank.value[bank.Resolve(reg)]
	default:
		err = ErrRegisterInvalid
	}
	return
}

// Set writes a register. A write to an 8-bit half leaves the other half
// of the parent register untouched.
func (bank *Bank) Set(reg RegisterIndex, value uint16) (err error) {
	switch {
	case reg.Is8():
		parent, half := reg.Split()
		bank.SetHalf(parent, half, uint8(value))
	case reg.Valid():
		bank.write(bank.Resolve(reg), value)
	default:
		err = ErrRegisterInvalid
	}
	return
}

// HalfOf reads one byte of a general purpose register.
func (bank *Bank) HalfOf(parent RegisterIndex, half Half) uint8 {
	value := bank.value[parent]
	if half == HALF_HIGH {
		return uint8(value >> 8)
	}
	return uint8(value)
}

// SetHalf writes one byte of a general purpose register.
func (bank *Bank) SetHalf(parent RegisterIndex, half Half, value uint8) {
	old := bank.value[parent]
	if half == HALF_HIGH {
		old = (old & 0x00ff) | (uint16(value) << 8)
	} else {
		old = (old & 0xff00) | uint16(value)
	}
	bank.write(parent, old)
}

func (bank *Bank) write(reg RegisterIndex, value uint16) {
	old := bank.value[reg]
	bank.value[reg] = value

	event.Publish(bank.Sink, event.Register{
		Index:  int(reg),
		Name:   reg.String(),
		Value:  value,
		Access: event.ACCESS_WRITE,
	})

	halt := uint16(1) << SR_HALT
	if reg == REG_SR && (value&halt) != 0 && (old&halt) == 0 && bank.OnHalt != nil {
		bank.OnHalt()
	}
}

// IP returns the instruction pointer.
func (bank *Bank) IP() uint16 { return bank.value[REG_IP] }

// SetIP sets the instruction pointer.
func (bank *Bank) SetIP(value uint16) { bank.write(REG_IP, value) }

// SP returns the active stack pointer.
func (bank *Bank) SP() uint16 { return bank.value[bank.Resolve(REG_SP)] }

// SetSP sets the active stack pointer.
func (bank *Bank) SetSP(value uint16) { bank.write(bank.Resolve(REG_SP), value) }

// SR returns the status register.
func (bank *Bank) SR() Status { return Status(bank.value[REG_SR]) }

// SetSR writes the whole status register.
func (bank *Bank) SetSR(value Status) { bank.write(REG_SR, uint16(value)) }

// String returns the register bank as text.
func (bank *Bank) String() string {
	var sb strings.Builder
	for _, reg := range []RegisterIndex{REG_A, REG_B, REG_C, REG_D, REG_IP, REG_SP, REG_USP, REG_SSP} {
		value, _ := bank.Get(reg)
		fmt.Fprintf(&sb, "% 4s: 0x%04x\n", reg.String(), value)
	}
	fmt.Fprintf(&sb, "% 4s: %v\n", "SR", bank.SR())
	return sb.String()
}
