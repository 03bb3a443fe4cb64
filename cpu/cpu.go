package cpu

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/alu"
	"github.com/ezrec/sim16/event"
	"github.com/ezrec/sim16/io"
	"github.com/ezrec/sim16/memory"
	"github.com/ezrec/sim16/translate"
)

//go:generate go tool stringer -linecomment -type=State

// State is the control unit state.
type State int

const (
	STATE_RESET          = State(iota) // RESET
	STATE_FETCH                        // FETCH
	STATE_DECODE                       // DECODE
	STATE_FETCH_OPERANDS               // FETCH_OPERANDS
	STATE_EXECUTE                      // EXECUTE
	STATE_HALTED                       // HALTED
	STATE_FAULT                        // FAULT
)

// Vectors are the entry points of interrupts, system calls and
// exceptions. Each vector is a word-sized slot, usually holding a JMP.
type Vectors struct {
	Interrupt uint16 `toml:"interrupt"`
	Syscall   uint16 `toml:"syscall"`
	Exception uint16 `toml:"exception"`
}

// DefaultVectors follow the slot at address 0 holding the reset JMP.
var DefaultVectors = Vectors{Interrupt: 3, Syscall: 6, Exception: 9}

const (
	USER_STACK_TOP       = 0x0380 // Default reset value of USP.
	SUPERVISOR_STACK_TOP = 0x0400 // Default reset value of SSP.
)

// Ticker is a peripheral clocked once per step.
type Ticker interface {
	Tick() error
}

// Cpu is the control unit.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Sink      event.Sink
	Registers *Bank
	Alu       *alu.Alu
	Memory    *memory.Memory
	Io        *io.Map
	Vectors   Vectors
	Tickers   []Ticker

	State State
	Ticks int // Clock ticks since reset.

	irq       bool   // Interrupt signal asserted.
	executing bool   // Inside an instruction.
	ip        uint16 // Address of the executing instruction.
	nextIP    uint16 // Address following the executing instruction.
	fault     error
}

// NewCpu creates a control unit over the given memory and I/O space.
func NewCpu(mem *memory.Memory, iomap *io.Map) (cpu *Cpu) {
	cpu = &Cpu{
		Registers: NewBank(),
		Alu:       &alu.Alu{},
		Memory:    mem,
		Io:        iomap,
		Vectors:   DefaultVectors,
	}

	bank := cpu.Registers
	_ = bank.SetReset(REG_SR, uint16(SR_SUPERVISOR.Mask()))
	_ = bank.SetReset(REG_USP, USER_STACK_TOP)
	_ = bank.SetReset(REG_SSP, SUPERVISOR_STACK_TOP)

	bank.OnHalt = cpu.onHalt

	cpu.Reset()

	return
}

// SetSink sets the event sink of the control unit, register bank and ALU.
func (cpu *Cpu) SetSink(sink event.Sink) {
	cpu.Sink = sink
	cpu.Registers.Sink = sink
	cpu.Alu.Sink = sink
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		defs := []struct {
			name  string
			value int
		}{
			{"VECTOR_INTERRUPT", int(cpu.Vectors.Interrupt)},
			{"VECTOR_SYSCALL", int(cpu.Vectors.Syscall)},
			{"VECTOR_EXCEPTION", int(cpu.Vectors.Exception)},
			{"USER_STACK_TOP", int(cpu.Registers.reset[REG_USP])},
			{"SUPERVISOR_STACK_TOP", int(cpu.Registers.reset[REG_SSP])},
		}
		for kind := range EXCEPTION_STACK_ACCESS_ERROR + 1 {
			name := strings.ReplaceAll(strings.ToUpper(kind.String()), " ", "_")
			defs = append(defs, struct {
				name  string
				value int
			}{"EXC_" + name, int(kind)})
		}
		for _, def := range defs {
			if !yield(def.name, fmt.Sprintf("%d", def.value)) {
				return
			}
		}
	}
}

// Reset returns the control unit and registers to power-on state. A
// FAULT is only cleared here.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		logrus.Debug("cpu: reset")
	}

	cpu.Registers.Reset()
	cpu.State = STATE_RESET
	cpu.Ticks = 0
	cpu.irq = false
	cpu.executing = false
	cpu.fault = nil

	cpu.publish("reset", "")
}

// Fault returns the error that faulted the machine, or nil.
func (cpu *Cpu) Fault() error {
	return cpu.fault
}

// Halted returns true if SR.HALT is set.
func (cpu *Cpu) Halted() bool {
	return cpu.Registers.Flag(SR_HALT)
}

// Pending returns true if the interrupt signal is asserted.
func (cpu *Cpu) Pending() bool {
	return cpu.irq
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() string {
	return fmt.Sprintf("state: %v\nticks: %d\n%v", cpu.State, cpu.Ticks, cpu.Registers.String())
}

func (cpu *Cpu) publish(op string, text string) {
	if cpu.Sink == nil {
		return
	}
	bank := cpu.Registers
	event.Publish(cpu.Sink, event.Cpu{
		Op:   op,
		IP:   bank.IP(),
		SP:   bank.SP(),
		SR:   uint16(bank.SR()),
		Text: text,
	})
}

func (cpu *Cpu) onHalt() {
	cpu.State = STATE_HALTED
	cpu.publish("halt", "")
}

// Step runs one instruction cycle. A halted CPU only consumes a clock
// tick. A faulted CPU fails until Reset.
func (cpu *Cpu) Step() (err error) {
	if cpu.State == STATE_FAULT {
		err = cpu.faulted()
		return
	}

	bank := cpu.Registers

	if bank.Flag(SR_HALT) {
		cpu.State = STATE_HALTED
		err = cpu.tick()
		return
	}

	cpu.executing = true
	err = cpu.execute()
	cpu.executing = false

	if err != nil {
		exc := cpu.exception(err)
		err = cpu.dispatch(exc)
		if err != nil {
			return
		}
	} else if cpu.irq && bank.Flag(SR_IRQMASK) {
		err = cpu.interrupt()
		if err != nil {
			return
		}
	}

	if !bank.Flag(SR_HALT) {
		cpu.State = STATE_FETCH
	}

	err = cpu.tick()
	return
}

func (cpu *Cpu) tick() (err error) {
	cpu.Ticks++
	for _, ticker := range cpu.Tickers {
		err = ticker.Tick()
		if err != nil {
			return
		}
	}
	return
}

func (cpu *Cpu) faulted() error {
	return errors.Join(ErrFault, cpu.fault)
}

// execute fetches, decodes and executes the instruction at IP.
func (cpu *Cpu) execute() (err error) {
	bank := cpu.Registers

	cpu.ip = bank.IP()
	cpu.nextIP = cpu.ip

	cpu.State = STATE_FETCH
	opcode, err := cpu.fetchByte()
	if err != nil {
		return
	}

	cpu.State = STATE_DECODE
	ins, ok := Instructions.Lookup(opcode)
	if !ok {
		err = cpu.raise(EXCEPTION_UNKNOWN_OPCODE, fmt.Errorf("0x%02x", opcode))
		return
	}

	cpu.State = STATE_FETCH_OPERANDS
	args := make([]uint16, len(ins.Operands))
	for n, ot := range ins.Operands {
		args[n], err = cpu.fetchOperand(ot)
		if err != nil {
			return
		}
	}

	switch ins.Privilege {
	case PRIV_SUPERVISOR:
		if !bank.Flag(SR_SUPERVISOR) {
			err = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, ErrPrivilege)
			return
		}
	case PRIV_USER:
		if bank.Flag(SR_SUPERVISOR) {
			err = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, ErrPrivilege)
			return
		}
	}

	if cpu.Verbose {
		logrus.WithFields(logrus.Fields{
			"ip":       translate.Hex(cpu.ip),
			"opcode":   fmt.Sprintf("0x%02x", opcode),
			"mnemonic": ins.Mnemonic,
			"args":     args,
		}).Debug("cpu: execute")
	}

	cpu.State = STATE_EXECUTE
	advance, err := ins.Handler(cpu, args)
	if err != nil {
		return
	}

	if advance {
		bank.SetIP(cpu.nextIP)
	}

	if cpu.Sink != nil {
		text, _, _ := Disassemble(cpu.Memory, int(cpu.ip))
		cpu.publish("execute", text)
	}

	return
}

// fetchByte reads the next instruction byte.
func (cpu *Cpu) fetchByte() (value byte, err error) {
	addr := int(cpu.nextIP)
	value, err = cpu.Memory.LoadByte(addr)
	if err != nil {
		err = cpu.raiseAt(EXCEPTION_INSTRUCTION_FETCH_ERROR, uint16(addr), err)
		return
	}
	cpu.nextIP++
	return
}

// fetchOperand reads and resolves one operand.
func (cpu *Cpu) fetchOperand(ot OperandType) (value uint16, err error) {
	var raw uint16
	for range ot.Size() {
		var b byte
		b, err = cpu.fetchByte()
		if err != nil {
			return
		}
		raw = (raw << 8) | uint16(b)
	}

	if ot != OPERAND_REGADDRESS {
		value = raw
		return
	}

	value, err = cpu.resolveRegAddress(raw)
	return
}

// resolveRegAddress resolves an encoded [reg+offset] to an address.
func (cpu *Cpu) resolveRegAddress(raw uint16) (addr uint16, err error) {
	reg := RegisterIndex(raw & 0xff)
	offset := int8(raw >> 8)

	if !reg.Is16() {
		err = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, ErrRegisterInvalid)
		return
	}

	base, err := cpu.Registers.Get(reg)
	if err != nil {
		err = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, err)
		return
	}

	addr = base + uint16(int16(offset))
	return
}

// raise creates an exception for the executing instruction.
func (cpu *Cpu) raise(kind ExceptionKind, cause error) *Exception {
	bank := cpu.Registers
	return &Exception{
		Kind: kind,
		IP:   cpu.ip,
		SP:   bank.SP(),
		SR:   bank.SR(),
		Err:  cause,
	}
}

// raiseAt creates an exception carrying a faulting address.
func (cpu *Cpu) raiseAt(kind ExceptionKind, addr uint16, cause error) *Exception {
	exc := cpu.raise(kind, cause)
	exc.Addr = addr
	exc.HasAddr = true
	return exc
}

// exception converts any execution failure into an exception.
func (cpu *Cpu) exception(err error) (exc *Exception) {
	if errors.As(err, &exc) {
		return
	}

	var access *memory.AccessError
	switch {
	case errors.Is(err, alu.ErrDivisionByZero):
		exc = cpu.raise(EXCEPTION_DIVIDE_BY_ZERO, err)
	case errors.As(err, &access):
		exc = cpu.raiseAt(EXCEPTION_MEMORY_ACCESS_ERROR, uint16(access.Addr), err)
	default:
		exc = cpu.raise(EXCEPTION_ILLEGAL_INSTRUCTION, err)
	}
	return
}

// dispatch enters the exception vector, or faults the machine if the
// exception was raised in supervisor mode or the frame cannot be built.
func (cpu *Cpu) dispatch(exc *Exception) (err error) {
	bank := cpu.Registers

	if cpu.Verbose {
		logrus.WithError(exc).Debug("cpu: exception")
	}
	cpu.publish("exception", exc.Error())

	if exc.SR.Has(SR_SUPERVISOR) {
		err = cpu.setFault(exc)
		return
	}

	bank.SetFlag(SR_SUPERVISOR, true)
	bank.SetFlag(SR_IRQMASK, false)

	for _, word := range exc.Frame() {
		err = cpu.push(word)
		if err != nil {
			err = cpu.setFault(errors.Join(exc, err))
			return
		}
	}

	bank.SetIP(cpu.Vectors.Exception)
	return
}

// setFault enters the terminal FAULT state.
func (cpu *Cpu) setFault(cause error) error {
	cpu.fault = cause
	cpu.Registers.SetFlag(SR_FAULT, true)
	cpu.State = STATE_FAULT

	if cpu.Verbose {
		logrus.WithError(cause).Debug("cpu: fault")
	}
	cpu.publish("fault", cause.Error())

	return cpu.faulted()
}

// RaiseInterrupt asserts the interrupt signal. With interrupts enabled the
// interrupt is entered, immediately when called between instructions or
// at the end of the executing instruction otherwise.
func (cpu *Cpu) RaiseInterrupt() (err error) {
	if cpu.State == STATE_FAULT {
		err = cpu.faulted()
		return
	}

	cpu.irq = true

	if !cpu.Registers.Flag(SR_IRQMASK) || cpu.executing {
		return
	}

	return cpu.interrupt()
}

// LowerInterrupt releases the interrupt signal.
func (cpu *Cpu) LowerInterrupt() {
	cpu.irq = false
}

// interrupt pushes the interrupt frame and enters the interrupt vector.
func (cpu *Cpu) interrupt() (err error) {
	bank := cpu.Registers

	bank.SetFlag(SR_HALT, false)

	frame := []uint16{uint16(bank.SR()), bank.SP(), bank.IP()}

	bank.SetFlag(SR_SUPERVISOR, true)
	bank.SetFlag(SR_IRQMASK, false)

	for _, word := range frame {
		err = cpu.push(word)
		if err != nil {
			err = cpu.setFault(err)
			return
		}
	}

	bank.SetIP(cpu.Vectors.Interrupt)
	cpu.State = STATE_FETCH

	if cpu.Verbose {
		logrus.WithField("vector", cpu.Vectors.Interrupt).Debug("cpu: interrupt")
	}
	cpu.publish("interrupt", "")

	return
}

// syscall pushes the syscall frame and enters the syscall vector.
func (cpu *Cpu) syscall() (err error) {
	bank := cpu.Registers

	frame := []uint16{uint16(bank.SR()), bank.SP(), cpu.nextIP}

	bank.SetFlag(SR_SUPERVISOR, true)

	for _, word := range frame {
		err = cpu.push(word)
		if err != nil {
			return
		}
	}

	bank.SetIP(cpu.Vectors.Syscall)
	cpu.publish("syscall", "")

	return
}

// iret pops IP, SP and SR. SR is restored first, so SP is written to the
// stack pointer of the restored mode.
func (cpu *Cpu) iret() (err error) {
	bank := cpu.Registers

	ip, err := cpu.pop()
	if err != nil {
		return
	}
	sp, err := cpu.pop()
	if err != nil {
		return
	}
	sr, err := cpu.pop()
	if err != nil {
		return
	}

	bank.SetSR(Status(sr))
	bank.SetSP(sp)
	bank.SetIP(ip)

	cpu.publish("iret", "")
	return
}
