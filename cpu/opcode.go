package cpu

import (
	"fmt"
	"iter"
	"strings"
)

//go:generate go tool stringer -linecomment -type=OperandType

// OperandType is the declared type of an instruction operand.
type OperandType int

const (
	OPERAND_BYTE        = OperandType(0) // BYTE
	OPERAND_WORD        = OperandType(1) // WORD
	OPERAND_REGISTER_8  = OperandType(2) // REGISTER_8
	OPERAND_REGISTER_16 = OperandType(3) // REGISTER_16
	OPERAND_ADDRESS     = OperandType(4) // ADDRESS
	OPERAND_REGADDRESS  = OperandType(5) // REGADDRESS
)

// Size returns the encoded size of the operand in bytes.
func (ot OperandType) Size() int {
	switch ot {
	case OPERAND_BYTE, OPERAND_REGISTER_8, OPERAND_REGISTER_16:
		return 1
	}
	return 2
}

//go:generate go tool stringer -linecomment -type=OperandClass

// OperandClass is the operand type as seen by overload resolution.
type OperandClass int

const (
	CLASS_IMMEDIATE  = OperandClass(0) // imm
	CLASS_REGISTER   = OperandClass(1) // reg
	CLASS_ADDRESS    = OperandClass(2) // [addr]
	CLASS_REGADDRESS = OperandClass(3) // [reg+off]
)

// Class collapses BYTE/WORD and the register widths.
func (ot OperandType) Class() OperandClass {
	switch ot {
	case OPERAND_BYTE, OPERAND_WORD:
		return CLASS_IMMEDIATE
	case OPERAND_REGISTER_8, OPERAND_REGISTER_16:
		return CLASS_REGISTER
	case OPERAND_ADDRESS:
		return CLASS_ADDRESS
	}
	return CLASS_REGADDRESS
}

// Privilege restricts the mode an instruction may execute in.
type Privilege int

const (
	PRIV_ANY        = Privilege(0)
	PRIV_SUPERVISOR = Privilege(1)
	PRIV_USER       = Privilege(2)
)

// Handler executes an instruction with its resolved operands. Register
// operands are register indexes, REGADDRESS operands are the resolved
// absolute address. It returns false if it has set IP itself.
type Handler func(cpu *Cpu, args []uint16) (advance bool, err error)

// Instruction is an entry of the instruction set.
type Instruction struct {
	Opcode    byte
	Mnemonic  string
	Operands  []OperandType
	Privilege Privilege
	Handler   Handler
}

// Size returns the encoded size of the instruction in bytes.
func (ins *Instruction) Size() (size int) {
	size = 1
	for _, ot := range ins.Operands {
		size += ot.Size()
	}
	return
}

// Signature returns the operand classes of the instruction.
func (ins *Instruction) Signature() (classes []OperandClass) {
	for _, ot := range ins.Operands {
		classes = append(classes, ot.Class())
	}
	return
}

func (ins *Instruction) String() string {
	var ops []string
	for _, ot := range ins.Operands {
		ops = append(ops, ot.String())
	}
	return fmt.Sprintf("0x%02x %v %v", ins.Opcode, ins.Mnemonic, strings.Join(ops, ","))
}

func signatureKey(mnemonic string, classes []OperandClass) string {
	key := strings.ToUpper(mnemonic)
	for _, oc := range classes {
		key += " " + oc.String()
	}
	return key
}

// InstructionSet is the opcode registry.
type InstructionSet struct {
	byOpcode    [256]*Instruction
	bySignature map[string]*Instruction
	mnemonics   map[string]bool
}

// NewInstructionSet builds a registry, rejecting duplicate opcodes and
// ambiguous overloads.
func NewInstructionSet(table []Instruction) (set *InstructionSet, err error) {
	set = &InstructionSet{
		bySignature: make(map[string]*Instruction, len(table)),
		mnemonics:   make(map[string]bool),
	}

	for n := range table {
		ins := &table[n]
		if ins.Handler == nil || len(ins.Operands) > 2 {
			err = fmt.Errorf("%w: %v", ErrInstructionTable, ins)
			return
		}
		if set.byOpcode[ins.Opcode] != nil {
			err = fmt.Errorf("%w: opcode 0x%02x duplicated", ErrInstructionTable, ins.Opcode)
			return
		}
		key := signatureKey(ins.Mnemonic, ins.Signature())
		if _, ok := set.bySignature[key]; ok {
			err = fmt.Errorf("%w: %v ambiguous", ErrInstructionTable, key)
			return
		}
		set.byOpcode[ins.Opcode] = ins
		set.bySignature[key] = ins
		set.mnemonics[strings.ToUpper(ins.Mnemonic)] = true
	}

	return
}

// Lookup returns the instruction for an opcode.
func (set *InstructionSet) Lookup(opcode byte) (ins *Instruction, ok bool) {
	ins = set.byOpcode[opcode]
	ok = ins != nil
	return
}

// Find returns the instruction matching a mnemonic and operand classes.
func (set *InstructionSet) Find(mnemonic string, classes []OperandClass) (ins *Instruction, ok bool) {
	ins, ok = set.bySignature[signatureKey(mnemonic, classes)]
	return
}

// IsMnemonic returns true if any instruction has the mnemonic.
func (set *InstructionSet) IsMnemonic(mnemonic string) bool {
	return set.mnemonics[strings.ToUpper(mnemonic)]
}

// All iterates over the instructions by opcode.
func (set *InstructionSet) All() iter.Seq[*Instruction] {
	return func(yield func(*Instruction) bool) {
		for _, ins := range set.byOpcode {
			if ins == nil {
				continue
			}
			if !yield(ins) {
				return
			}
		}
	}
}

// Instructions is the instruction set of the machine.
var Instructions = mustInstructionSet(instructionTable())

func mustInstructionSet(table []Instruction) *InstructionSet {
	set, err := NewInstructionSet(table)
	if err != nil {
		panic(err)
	}
	return set
}
