package cpu

import (
	"errors"

	"github.com/ezrec/sim16/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrFault            = errors.New(f("cpu fault"))
	ErrRegisterInvalid  = errors.New(f("register invalid"))
	ErrPrivilege        = errors.New(f("privilege violation"))
	ErrPortAccess       = errors.New(f("i/o port access"))
	ErrInstructionTable = errors.New(f("instruction table invalid"))

	// Exception kinds
	ErrDivideByZero          = errors.New(f("divide by zero"))
	ErrInstructionFetchError = errors.New(f("instruction fetch error"))
	ErrMemoryAccessError     = errors.New(f("memory access error"))
	ErrUnknownOpcode         = errors.New(f("unknown opcode"))
	ErrIllegalInstruction    = errors.New(f("illegal instruction"))
	ErrStackAccessError      = errors.New(f("stack access error"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelReserved      = errors.New(f("label reserved"))
	ErrLabelInvalid       = errors.New(f("label invalid"))
	ErrMnemonicUnknown    = errors.New(f("mnemonic unknown"))
	ErrOperandMismatch    = errors.New(f("operands do not match instruction"))
	ErrOperandRange       = errors.New(f("operand out of range"))
	ErrOperandSyntax      = errors.New(f("operand syntax"))
	ErrOffsetRange        = errors.New(f("register offset out of range"))
	ErrStringUnterminated = errors.New(f("string unterminated"))
	ErrDataInvalid        = errors.New(f("data invalid"))
)

// ErrLabelMissing is an undefined label.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrSyntax is an assembly failure on a 0-based source line.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrParseNumber is a malformed numeric literal.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrParseValue is an operand that is neither a value nor a register.
type ErrParseValue string

func (err ErrParseValue) Error() string {
	return f("'%v' is not a value or register", string(err))
}

// ErrParseExpression is a failed $(...) evaluation.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
