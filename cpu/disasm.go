package cpu

import (
	"fmt"
	"strings"
)

// ByteReader is memory readable by the disassembler.
type ByteReader interface {
	LoadByte(addr int) (byte, error)
}

// FormatRegAddress formats an encoded [reg+offset] operand.
func FormatRegAddress(raw uint16) string {
	reg := RegisterIndex(raw & 0xff)
	offset := int8(raw >> 8)
	switch {
	case offset > 0:
		return fmt.Sprintf("[%v+%d]", reg, offset)
	case offset < 0:
		return fmt.Sprintf("[%v-%d]", reg, -int(offset))
	}
	return fmt.Sprintf("[%v]", reg)
}

// FormatOperand formats a raw operand of the given type.
func FormatOperand(ot OperandType, raw uint16) string {
	switch ot {
	case OPERAND_BYTE:
		return fmt.Sprintf("0x%02x", raw)
	case OPERAND_WORD:
		return fmt.Sprintf("0x%04x", raw)
	case OPERAND_REGISTER_8, OPERAND_REGISTER_16:
		return RegisterIndex(raw).String()
	case OPERAND_ADDRESS:
		return fmt.Sprintf("[0x%04x]", raw)
	}
	return FormatRegAddress(raw)
}

// Disassemble decodes the instruction at addr.
func Disassemble(mem ByteReader, addr int) (text string, size int, err error) {
	opcode, err := mem.LoadByte(addr)
	if err != nil {
		return
	}

	ins, ok := Instructions.Lookup(opcode)
	if !ok {
		text = fmt.Sprintf("DB 0x%02x", opcode)
		size = 1
		err = ErrUnknownOpcode
		return
	}

	cursor := addr + 1
	var ops []string
	for _, ot := range ins.Operands {
		var raw uint16
		for range ot.Size() {
			var b byte
			b, err = mem.LoadByte(cursor)
			if err != nil {
				return
			}
			raw = (raw << 8) | uint16(b)
			cursor++
		}
		ops = append(ops, FormatOperand(ot, raw))
	}

	size = cursor - addr
	text = ins.Mnemonic
	if len(ops) > 0 {
		text += " " + strings.Join(ops, ", ")
	}
	return
}
