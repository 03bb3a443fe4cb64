package cpu

import (
	"github.com/ezrec/sim16/alu"
)

// width is the data width of an instruction family.
type width struct {
	alu      alu.Width
	register OperandType
	value    OperandType
	suffix   string
}

var (
	width16 = width{alu.WIDTH_16, OPERAND_REGISTER_16, OPERAND_WORD, ""}
	width8  = width{alu.WIDTH_8, OPERAND_REGISTER_8, OPERAND_BYTE, "B"}
)

// readReg reads a register operand of the expected width.
func (cpu *Cpu) readReg(w width, arg uint16) (value uint16, err error) {
	err = cpu.checkReg(w, arg)
	if err != nil {
		return
	}
	value, err = cpu.Registers.Get(RegisterIndex(arg))
	return
}

// writeReg writes a register operand of the expected width.
func (cpu *Cpu) writeReg(w width, arg uint16, value uint16) (err error) {
	err = cpu.checkReg(w, arg)
	if err != nil {
		return
	}
	err = cpu.Registers.Set(RegisterIndex(arg), value)
	return
}

func (cpu *Cpu) checkReg(w width, arg uint16) (err error) {
	reg := RegisterIndex(arg)
	ok := reg.Is16()
	if w.register == OPERAND_REGISTER_8 {
		ok = reg.Is8()
	}
	if !ok {
		err = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, ErrRegisterInvalid)
	}
	return
}

// load reads memory at the width.
func (cpu *Cpu) load(w width, addr uint16) (value uint16, err error) {
	if w.alu == alu.WIDTH_8 {
		var b byte
		b, err = cpu.Memory.LoadByte(int(addr))
		value = uint16(b)
	} else {
		value, err = cpu.Memory.LoadWord(int(addr))
	}
	if err != nil {
		err = cpu.exception(err)
	}
	return
}

// store writes memory at the width.
func (cpu *Cpu) store(w width, addr uint16, value uint16) (err error) {
	if w.alu == alu.WIDTH_8 {
		err = cpu.Memory.StoreByte(int(addr), byte(value), nil)
	} else {
		err = cpu.Memory.StoreWord(int(addr), value, nil)
	}
	if err != nil {
		err = cpu.exception(err)
	}
	return
}

// flags writes the ALU result flags into SR.
func (cpu *Cpu) flags(result alu.Result) {
	bank := cpu.Registers
	sr := bank.SR().With(SR_CARRY, result.Carry).With(SR_ZERO, result.Zero)
	if sr != bank.SR() {
		bank.SetSR(sr)
	}
}

// jump sets IP to target.
func (cpu *Cpu) jump(target uint16) (advance bool, err error) {
	cpu.Registers.SetIP(target)
	return
}

// source fetches a value operand.
type source func(cpu *Cpu, w width, arg uint16) (uint16, error)

func srcReg(cpu *Cpu, w width, arg uint16) (uint16, error) { return cpu.readReg(w, arg) }
func srcMem(cpu *Cpu, w width, arg uint16) (uint16, error) { return cpu.load(w, arg) }
func srcImm(cpu *Cpu, w width, arg uint16) (uint16, error) { return arg & w.alu.Mask(), nil }

// sink stores a value operand.
type sink func(cpu *Cpu, w width, arg uint16, value uint16) error

func dstReg(cpu *Cpu, w width, arg, value uint16) error { return cpu.writeReg(w, arg, value) }
func dstMem(cpu *Cpu, w width, arg, value uint16) error { return cpu.store(w, arg, value) }

func movInstruction(opcode byte, w width, dst OperandType, dstFn sink, src OperandType, srcFn source) Instruction {
	return Instruction{
		Opcode:   opcode,
		Mnemonic: "MOV" + w.suffix,
		Operands: []OperandType{dst, src},
		Handler: func(cpu *Cpu, args []uint16) (advance bool, err error) {
			value, err := srcFn(cpu, w, args[1])
			if err != nil {
				return
			}
			err = dstFn(cpu, w, args[0], value)
			advance = true
			return
		},
	}
}

// movFamily is the eight MOV forms at base.
func movFamily(base byte, w width) []Instruction {
	return []Instruction{
		movInstruction(base+0, w, w.register, dstReg, w.register, srcReg),
		movInstruction(base+1, w, w.register, dstReg, OPERAND_ADDRESS, srcMem),
		movInstruction(base+2, w, w.register, dstReg, OPERAND_REGADDRESS, srcMem),
		movInstruction(base+3, w, OPERAND_ADDRESS, dstMem, w.register, srcReg),
		movInstruction(base+4, w, OPERAND_REGADDRESS, dstMem, w.register, srcReg),
		movInstruction(base+5, w, w.register, dstReg, w.value, srcImm),
		movInstruction(base+6, w, OPERAND_ADDRESS, dstMem, w.value, srcImm),
		movInstruction(base+7, w, OPERAND_REGADDRESS, dstMem, w.value, srcImm),
	}
}

// aluOps are the two-operand ALU families, in opcode order.
var aluOps = []struct {
	mnemonic string
	op       alu.Op
	compare  bool
}{
	{"ADD", alu.OP_ADD, false},
	{"SUB", alu.OP_SUB, false},
	{"MUL", alu.OP_MUL, false},
	{"DIV", alu.OP_DIV, false},
	{"AND", alu.OP_AND, false},
	{"OR", alu.OP_OR, false},
	{"XOR", alu.OP_XOR, false},
	{"SHL", alu.OP_SHL, false},
	{"SHR", alu.OP_SHR, false},
	{"CMP", alu.OP_SUB, true},
}

// doAlu performs dst = dst op src on a register, writing the flags.
func (cpu *Cpu) doAlu(w width, op alu.Op, compare bool, reg uint16, b uint16) (err error) {
	a, err := cpu.readReg(w, reg)
	if err != nil {
		return
	}

	result, err := cpu.Alu.Do(op, w.alu, a, b)
	if err != nil {
		err = cpu.raise(EXCEPTION_DIVIDE_BY_ZERO, err)
		return
	}

	cpu.flags(result)

	if !compare {
		err = cpu.writeReg(w, reg, result.Value)
	}
	return
}

func aluInstruction(opcode byte, mnemonic string, w width, op alu.Op, compare bool, src OperandType, srcFn source) Instruction {
	return Instruction{
		Opcode:   opcode,
		Mnemonic: mnemonic + w.suffix,
		Operands: []OperandType{w.register, src},
		Handler: func(cpu *Cpu, args []uint16) (advance bool, err error) {
			b, err := srcFn(cpu, w, args[1])
			if err != nil {
				return
			}
			err = cpu.doAlu(w, op, compare, args[0], b)
			advance = true
			return
		},
	}
}

// aluFamily is the four forms of each two-operand ALU instruction.
func aluFamily(base byte, w width) (table []Instruction) {
	for k, entry := range aluOps {
		opcode := base + byte(4*k)
		table = append(table,
			aluInstruction(opcode+0, entry.mnemonic, w, entry.op, entry.compare, w.register, srcReg),
			aluInstruction(opcode+1, entry.mnemonic, w, entry.op, entry.compare, OPERAND_REGADDRESS, srcMem),
			aluInstruction(opcode+2, entry.mnemonic, w, entry.op, entry.compare, OPERAND_ADDRESS, srcMem),
			aluInstruction(opcode+3, entry.mnemonic, w, entry.op, entry.compare, w.value, srcImm),
		)
	}
	return
}

// unaryFamily is NOT, INC and DEC on a register.
func unaryFamily(base byte, w width) []Instruction {
	unary := func(opcode byte, mnemonic string, op alu.Op, b uint16) Instruction {
		return Instruction{
			Opcode:   opcode,
			Mnemonic: mnemonic + w.suffix,
			Operands: []OperandType{w.register},
			Handler: func(cpu *Cpu, args []uint16) (advance bool, err error) {
				err = cpu.doAlu(w, op, false, args[0], b)
				advance = true
				return
			},
		}
	}

	return []Instruction{
		unary(base+0, "NOT", alu.OP_NOT, 0),
		unary(base+1, "INC", alu.OP_ADD, 1),
		unary(base+2, "DEC", alu.OP_SUB, 1),
	}
}

// jumpFamily is a jump taken when cond holds, in WORD and REGADDRESS
// forms. Both forms jump to the operand address.
func jumpFamily(base byte, mnemonic string, cond func(sr Status) bool) []Instruction {
	handler := func(cpu *Cpu, args []uint16) (advance bool, err error) {
		if !cond(cpu.Registers.SR()) {
			advance = true
			return
		}
		return cpu.jump(args[0])
	}

	return []Instruction{
		{Opcode: base + 0, Mnemonic: mnemonic, Operands: []OperandType{OPERAND_WORD}, Handler: handler},
		{Opcode: base + 1, Mnemonic: mnemonic, Operands: []OperandType{OPERAND_REGADDRESS}, Handler: handler},
	}
}

func pushInstruction(opcode byte, ot OperandType, srcFn source) Instruction {
	return Instruction{
		Opcode:   opcode,
		Mnemonic: "PUSH",
		Operands: []OperandType{ot},
		Handler: func(cpu *Cpu, args []uint16) (advance bool, err error) {
			value, err := srcFn(cpu, width16, args[0])
			if err != nil {
				return
			}
			err = cpu.push(value)
			advance = true
			return
		},
	}
}

func callHandler(cpu *Cpu, args []uint16) (advance bool, err error) {
	err = cpu.push(cpu.nextIP)
	if err != nil {
		return
	}
	return cpu.jump(args[0])
}

// outInstruction is an OUT to a WORD port.
func outInstruction(opcode byte, src OperandType, srcFn source) Instruction {
	return Instruction{
		Opcode:    opcode,
		Mnemonic:  "OUT",
		Operands:  []OperandType{OPERAND_WORD, src},
		Privilege: PRIV_SUPERVISOR,
		Handler: func(cpu *Cpu, args []uint16) (advance bool, err error) {
			value, err := srcFn(cpu, width16, args[1])
			if err != nil {
				return
			}
			if cpu.Io == nil {
				err = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, ErrPortAccess)
				return
			}
			err = cpu.Io.Store(int(args[0]), value, true)
			if err != nil {
				err = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, err)
				return
			}
			advance = true
			return
		},
	}
}

func instructionTable() (table []Instruction) {
	always := func(opcode byte, mnemonic string, priv Privilege, fn func(cpu *Cpu) (bool, error)) Instruction {
		return Instruction{
			Opcode:    opcode,
			Mnemonic:  mnemonic,
			Privilege: priv,
			Handler: func(cpu *Cpu, args []uint16) (bool, error) {
				return fn(cpu)
			},
		}
	}

	table = append(table,
		always(0x00, "NOP", PRIV_ANY, func(cpu *Cpu) (bool, error) {
			return true, nil
		}),
		always(0x01, "HLT", PRIV_ANY, func(cpu *Cpu) (bool, error) {
			cpu.Registers.SetFlag(SR_HALT, true)
			return true, nil
		}),
	)

	table = append(table, movFamily(0x10, width16)...)
	table = append(table, movFamily(0x18, width8)...)
	table = append(table, aluFamily(0x20, width16)...)
	table = append(table, unaryFamily(0x48, width16)...)
	table = append(table, aluFamily(0x50, width8)...)
	table = append(table, unaryFamily(0x78, width8)...)

	table = append(table, jumpFamily(0x80, "JMP", func(sr Status) bool { return true })...)
	table = append(table, jumpFamily(0x82, "JC", func(sr Status) bool { return sr.Has(SR_CARRY) })...)
	table = append(table, jumpFamily(0x84, "JNC", func(sr Status) bool { return !sr.Has(SR_CARRY) })...)
	table = append(table, jumpFamily(0x86, "JZ", func(sr Status) bool { return sr.Has(SR_ZERO) })...)
	table = append(table, jumpFamily(0x88, "JNZ", func(sr Status) bool { return !sr.Has(SR_ZERO) })...)
	table = append(table, jumpFamily(0x8A, "JA", func(sr Status) bool { return !sr.Has(SR_CARRY) && !sr.Has(SR_ZERO) })...)
	table = append(table, jumpFamily(0x8C, "JNA", func(sr Status) bool { return sr.Has(SR_CARRY) || sr.Has(SR_ZERO) })...)

	table = append(table,
		pushInstruction(0x90, OPERAND_REGISTER_16, srcReg),
		pushInstruction(0x91, OPERAND_WORD, srcImm),
		pushInstruction(0x92, OPERAND_ADDRESS, srcMem),
		pushInstruction(0x93, OPERAND_REGADDRESS, srcMem),
		Instruction{
			Opcode:   0x94,
			Mnemonic: "POP",
			Operands: []OperandType{OPERAND_REGISTER_16},
			Handler: func(cpu *Cpu, args []uint16) (advance bool, err error) {
				err = cpu.checkReg(width16, args[0])
				if err != nil {
					return
				}
				value, err := cpu.pop()
				if err != nil {
					return
				}
				err = cpu.writeReg(width16, args[0], value)
				advance = true
				return
			},
		},
		Instruction{Opcode: 0x98, Mnemonic: "CALL", Operands: []OperandType{OPERAND_WORD}, Handler: callHandler},
		Instruction{Opcode: 0x99, Mnemonic: "CALL", Operands: []OperandType{OPERAND_REGADDRESS}, Handler: callHandler},
		always(0x9A, "RET", PRIV_ANY, func(cpu *Cpu) (advance bool, err error) {
			ip, err := cpu.pop()
			if err != nil {
				return
			}
			return cpu.jump(ip)
		}),
	)

	table = append(table,
		always(0xA0, "CLI", PRIV_SUPERVISOR, func(cpu *Cpu) (bool, error) {
			cpu.Registers.SetFlag(SR_IRQMASK, false)
			return true, nil
		}),
		always(0xA1, "STI", PRIV_SUPERVISOR, func(cpu *Cpu) (bool, error) {
			cpu.Registers.SetFlag(SR_IRQMASK, true)
			return true, nil
		}),
		always(0xA2, "IRET", PRIV_SUPERVISOR, func(cpu *Cpu) (bool, error) {
			return false, cpu.iret()
		}),
		always(0xA3, "SVC", PRIV_USER, func(cpu *Cpu) (bool, error) {
			return false, cpu.syscall()
		}),
		always(0xA4, "SRET", PRIV_SUPERVISOR, func(cpu *Cpu) (bool, error) {
			return false, cpu.iret()
		}),
		Instruction{
			Opcode:    0xA8,
			Mnemonic:  "IN",
			Operands:  []OperandType{OPERAND_REGISTER_16, OPERAND_WORD},
			Privilege: PRIV_SUPERVISOR,
			Handler: func(cpu *Cpu, args []uint16) (advance bool, err error) {
				err = cpu.checkReg(width16, args[0])
				if err != nil {
					return
				}
				if cpu.Io == nil {
					err = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, ErrPortAccess)
					return
				}
				value, err := cpu.Io.Load(int(args[1]))
				if err != nil {
					err = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, err)
					return
				}
				err = cpu.writeReg(width16, args[0], value)
				advance = true
				return
			},
		},
		outInstruction(0xA9, OPERAND_REGISTER_16, srcReg),
		outInstruction(0xAA, OPERAND_WORD, srcImm),
	)

	return
}
