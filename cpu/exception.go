package cpu

import (
	"github.com/ezrec/sim16/translate"
)

// ExceptionKind is the type of a CPU exception, as pushed in the
// exception frame.
type ExceptionKind int

const (
	EXCEPTION_DIVIDE_BY_ZERO          = ExceptionKind(0)
	EXCEPTION_INSTRUCTION_FETCH_ERROR = ExceptionKind(1)
	EXCEPTION_MEMORY_ACCESS_ERROR     = ExceptionKind(2)
	EXCEPTION_UNKNOWN_OPCODE          = ExceptionKind(3)
	EXCEPTION_ILLEGAL_INSTRUCTION     = ExceptionKind(4)
	EXCEPTION_STACK_ACCESS_ERROR      = ExceptionKind(5)
)

var exceptionErr = map[ExceptionKind]error{
	EXCEPTION_DIVIDE_BY_ZERO:          ErrDivideByZero,
	EXCEPTION_INSTRUCTION_FETCH_ERROR: ErrInstructionFetchError,
	EXCEPTION_MEMORY_ACCESS_ERROR:     ErrMemoryAccessError,
	EXCEPTION_UNKNOWN_OPCODE:          ErrUnknownOpcode,
	EXCEPTION_ILLEGAL_INSTRUCTION:     ErrIllegalInstruction,
	EXCEPTION_STACK_ACCESS_ERROR:      ErrStackAccessError,
}

// Err returns the sentinel error of the kind.
func (kind ExceptionKind) Err() error {
	return exceptionErr[kind]
}

func (kind ExceptionKind) String() string {
	err, ok := exceptionErr[kind]
	if !ok {
		return translate.From("exception %d", int(kind))
	}
	return err.Error()
}

// Exception is a CPU exception, with the machine state at the faulting
// instruction.
type Exception struct {
	Kind    ExceptionKind
	IP      uint16 // Address of the faulting instruction.
	SP      uint16
	SR      Status
	Addr    uint16 // Faulting address, for memory access errors.
	HasAddr bool
	Err     error // Underlying cause, if any.
}

func (exc *Exception) Error() string {
	text := f("%v at ip=%v sp=%v sr=%v", exc.Kind,
		translate.Hex(exc.IP), translate.Hex(exc.SP), translate.Hex(uint16(exc.SR)))
	if exc.HasAddr {
		text += f(" addr=%v", translate.Hex(exc.Addr))
	}
	if exc.Err != nil {
		text += ": " + exc.Err.Error()
	}
	return text
}

// Is matches the sentinel error of the exception kind.
func (exc *Exception) Is(target error) bool {
	return target == exc.Kind.Err()
}

func (exc *Exception) Unwrap() error {
	return exc.Err
}

// Frame returns the words pushed for the exception, in push order.
func (exc *Exception) Frame() (frame []uint16) {
	frame = []uint16{uint16(exc.SR), exc.SP, exc.IP}
	if exc.Kind == EXCEPTION_MEMORY_ACCESS_ERROR {
		frame = append(frame, exc.Addr)
	}
	frame = append(frame, uint16(exc.Kind))
	return
}
