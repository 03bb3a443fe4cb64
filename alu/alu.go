// Package alu implements the flagged 8-bit and 16-bit arithmetic of the
// machine.
//
// Every operation computes an unbounded integer result and then wraps it to
// the operation width: a negative result, or one at or above 2^width, sets
// the carry flag. The zero flag is set when the wrapped result is zero.
package alu

import (
	"errors"

	"github.com/ezrec/sim16/event"
	"github.com/ezrec/sim16/translate"
)

var f = translate.From

var (
	ErrDivisionByZero = errors.New(f("division by zero"))
	ErrWidth          = errors.New(f("invalid operand width"))
	ErrOp             = errors.New(f("invalid alu operation"))
)

// Width is an operand width in bits.
type Width int

const (
	WIDTH_8  = Width(8)
	WIDTH_16 = Width(16)
)

// Mask returns the value mask for the width.
func (w Width) Mask() uint16 {
	if w == WIDTH_8 {
		return 0xff
	}
	return 0xffff
}

//go:generate go tool stringer -linecomment -type=Op

// Op is an ALU operation.
type Op int

const (
	OP_ADD = Op(iota) // add
	OP_SUB            // sub
	OP_MUL            // mul
	OP_DIV            // div
	OP_AND            // and
	OP_OR             // or
	OP_XOR            // xor
	OP_NOT            // not
	OP_SHL            // shl
	OP_SHR            // shr
)

// Result of an ALU operation.
type Result struct {
	Value uint16
	Carry bool
	Zero  bool
}

// Alu is the arithmetic-logic unit. It holds no state between operations.
type Alu struct {
	Sink event.Sink // Receives an event for every completed operation.
}

// Normalize wraps a raw result to the width, computing the flags.
func Normalize(raw int64, width Width) (result Result) {
	modulo := int64(1) << uint(width)

	switch {
	case raw < 0:
		raw %= modulo
		if raw < 0 {
			raw += modulo
		}
		result.Carry = true
	case raw >= modulo:
		raw %= modulo
		result.Carry = true
	}

	result.Value = uint16(raw)
	result.Zero = result.Value == 0
	return
}

// Do performs op on a and b. For OP_NOT, b is ignored. Operands are masked to
// the width before use.
func (alu *Alu) Do(op Op, width Width, a, b uint16) (result Result, err error) {
	if width != WIDTH_8 && width != WIDTH_16 {
		err = ErrWidth
		return
	}

	a &= width.Mask()
	b &= width.Mask()

	x := int64(a)
	y := int64(b)

	var raw int64
	switch op {
	case OP_ADD:
		raw = x + y
	case OP_SUB:
		raw = x - y
	case OP_MUL:
		raw = x * y
	case OP_DIV:
		if y == 0 {
			err = ErrDivisionByZero
			return
		}
		raw = x / y
	case OP_AND:
		raw = x & y
	case OP_OR:
		raw = x | y
	case OP_XOR:
		raw = x ^ y
	case OP_NOT:
		// Unbounded complement, always negative.
		raw = ^x
	case OP_SHL:
		raw = x << min(y, 32)
	case OP_SHR:
		raw = x >> min(y, 32)
	default:
		err = ErrOp
		return
	}

	result = Normalize(raw, width)

	event.Publish(alu.Sink, event.Alu{
		Op:     op.String(),
		Width:  int(width),
		A:      a,
		B:      b,
		Result: result.Value,
		Carry:  result.Carry,
		Zero:   result.Zero,
	})

	return
}

// Add8 adds two 8-bit values.
func (alu *Alu) Add8(a, b uint8) (Result, error) {
	return alu.Do(OP_ADD, WIDTH_8, uint16(a), uint16(b))
}

// Add16 adds two 16-bit values.
func (alu *Alu) Add16(a, b uint16) (Result, error) { return alu.Do(OP_ADD, WIDTH_16, a, b) }

// Sub8 subtracts b from a.
func (alu *Alu) Sub8(a, b uint8) (Result, error) {
	return alu.Do(OP_SUB, WIDTH_8, uint16(a), uint16(b))
}

// Sub16 subtracts b from a.
func (alu *Alu) Sub16(a, b uint16) (Result, error) { return alu.Do(OP_SUB, WIDTH_16, a, b) }

// Mul8 multiplies a by b.
func (alu *Alu) Mul8(a, b uint8) (Result, error) {
	return alu.Do(OP_MUL, WIDTH_8, uint16(a), uint16(b))
}

// Mul16 multiplies a by b.
func (alu *Alu) Mul16(a, b uint16) (Result, error) { return alu.Do(OP_MUL, WIDTH_16, a, b) }

// Div8 divides a by b, rounding down.
func (alu *Alu) Div8(a, b uint8) (Result, error) {
	return alu.Do(OP_DIV, WIDTH_8, uint16(a), uint16(b))
}

// Div16 divides a by b, rounding down.
func (alu *Alu) Div16(a, b uint16) (Result, error) { return alu.Do(OP_DIV, WIDTH_16, a, b) }

// And8 is the bitwise and of a and b.
func (alu *Alu) And8(a, b uint8) (Result, error) {
	return alu.Do(OP_AND, WIDTH_8, uint16(a), uint16(b))
}

// And16 is the bitwise and of a and b.
func (alu *Alu) And16(a, b uint16) (Result, error) { return alu.Do(OP_AND, WIDTH_16, a, b) }

// Or8 is the bitwise or of a and b.
func (alu *Alu) Or8(a, b uint8) (Result, error) { return alu.Do(OP_OR, WIDTH_8, uint16(a), uint16(b)) }

// Or16 is the bitwise or of a and b.
func (alu *Alu) Or16(a, b uint16) (Result, error) { return alu.Do(OP_OR, WIDTH_16, a, b) }

// Xor8 is the bitwise exclusive-or of a and b.
func (alu *Alu) Xor8(a, b uint8) (Result, error) {
	return alu.Do(OP_XOR, WIDTH_8, uint16(a), uint16(b))
}

// Xor16 is the bitwise exclusive-or of a and b.
func (alu *Alu) Xor16(a, b uint16) (Result, error) { return alu.Do(OP_XOR, WIDTH_16, a, b) }

// Not8 is the bitwise complement of a.
func (alu *Alu) Not8(a uint8) (Result, error) { return alu.Do(OP_NOT, WIDTH_8, uint16(a), 0) }

// Not16 is the bitwise complement of a.
func (alu *Alu) Not16(a uint16) (Result, error) { return alu.Do(OP_NOT, WIDTH_16, a, 0) }

// Shl8 shifts a left by b bits.
func (alu *Alu) Shl8(a, b uint8) (Result, error) {
	return alu.Do(OP_SHL, WIDTH_8, uint16(a), uint16(b))
}

// Shl16 shifts a left by b bits.
func (alu *Alu) Shl16(a, b uint16) (Result, error) { return alu.Do(OP_SHL, WIDTH_16, a, b) }

// Shr8 shifts a right by b bits.
func (alu *Alu) Shr8(a, b uint8) (Result, error) {
	return alu.Do(OP_SHR, WIDTH_8, uint16(a), uint16(b))
}

// Shr16 shifts a right by b bits.
func (alu *Alu) Shr16(a, b uint16) (Result, error) { return alu.Do(OP_SHR, WIDTH_16, a, b) }
