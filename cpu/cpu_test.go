package cpu

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/sim16/event"
	"github.com/ezrec/sim16/io"
	"github.com/ezrec/sim16/memory"
)

type machine struct {
	cpu  *Cpu
	mem  *memory.Memory
	io   *io.Map
	pic  *io.Pic
	prog *Program
}

// newMachine assembles source and loads it at address 0.
func newMachine(t *testing.T, source ...string) (m *machine) {
	t.Helper()

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(source, "\n")))
	require.NoError(t, err)

	m = &machine{
		mem:  memory.NewMemory(memory.DEFAULT_SIZE),
		io:   io.NewMap(),
		prog: prog,
	}
	require.NoError(t, m.mem.StoreBytes(0, prog.Code))

	m.cpu = NewCpu(m.mem, m.io)
	m.pic = io.NewPic(io.DefaultPicPorts)
	m.pic.Cpu = m.cpu
	require.NoError(t, m.pic.Attach(m.io))

	return
}

func (m *machine) reg(reg RegisterIndex) uint16 {
	value, _ := m.cpu.Registers.Get(reg)
	return value
}

// steps runs n steps, requiring each to succeed.
func (m *machine) steps(t *testing.T, n int) {
	t.Helper()
	for range n {
		require.NoError(t, m.cpu.Step())
	}
}

func TestCpu_Reset(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, "HLT")

	assert.Equal(STATE_RESET, m.cpu.State)
	assert.Equal(uint16(0), m.cpu.Registers.IP())
	assert.True(m.cpu.Registers.Flag(SR_SUPERVISOR))
	assert.False(m.cpu.Registers.Flag(SR_IRQMASK))
	assert.Equal(uint16(SUPERVISOR_STACK_TOP), m.cpu.Registers.SP())
	assert.Equal(uint16(USER_STACK_TOP), m.reg(REG_USP))
}

func TestCpu_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		"MOV A, 5",
		"ADD A, 3",
		"HLT",
	)

	assert.Len(m.prog.Lines, 3)
	ins, ok := Instructions.Find("MOV", []OperandClass{CLASS_REGISTER, CLASS_IMMEDIATE})
	assert.True(ok)
	assert.Equal(ins.Opcode, m.prog.Code[0])

	m.steps(t, 3)

	assert.Equal(uint16(8), m.reg(REG_A))
	assert.True(m.cpu.Registers.Flag(SR_HALT))
	assert.Equal(STATE_HALTED, m.cpu.State)

	// Halted CPU still ticks, without fetching.
	ip := m.cpu.Registers.IP()
	ticks := m.cpu.Ticks
	m.steps(t, 2)
	assert.Equal(ip, m.cpu.Registers.IP())
	assert.Equal(ticks+2, m.cpu.Ticks)
}

func TestCpu_Arithmetic(t *testing.T) {
	table := []struct {
		name   string
		source []string
		steps  int
		reg    RegisterIndex
		value  uint16
		carry  bool
		zero   bool
	}{
		{"add carry", []string{"MOV A, 0xffff", "ADD A, 1"}, 2, REG_A, 0, true, true},
		{"sub borrow", []string{"MOV B, 1", "SUB B, 2"}, 2, REG_B, 0xffff, true, false},
		{"mul", []string{"MOV C, 300", "MUL C, 300"}, 2, REG_C, uint16((300 * 300) % 65536), true, false},
		{"div", []string{"MOV D, 100", "DIV D, 7"}, 2, REG_D, 14, false, false},
		{"and", []string{"MOV A, 0xf0f0", "AND A, 0x0ff0"}, 2, REG_A, 0x00f0, false, false},
		{"or reg", []string{"MOV A, 0x00f0", "MOV B, 0x0f00", "OR A, B"}, 3, REG_A, 0x0ff0, false, false},
		{"xor self", []string{"MOV A, 0x1234", "XOR A, A"}, 2, REG_A, 0, false, true},
		{"shl", []string{"MOV A, 0x8001", "SHL A, 1"}, 2, REG_A, 0x0002, true, false},
		{"shr", []string{"MOV A, 0x8001", "SHR A, 1"}, 2, REG_A, 0x4000, false, false},
		{"cmp equal", []string{"MOV A, 9", "CMP A, 9"}, 2, REG_A, 9, false, true},
		{"cmp less", []string{"MOV A, 3", "CMP A, 9"}, 2, REG_A, 3, true, false},
		{"inc", []string{"MOV A, 0xffff", "INC A"}, 2, REG_A, 0, true, true},
		{"dec", []string{"MOV A, 1", "DEC A"}, 2, REG_A, 0, false, true},
		{"addb", []string{"MOVB AL, 0xff", "ADDB AL, 2"}, 2, REG_A, 0x0001, true, false},
		{"addb keeps high", []string{"MOV A, 0x12ff", "ADDB AL, 1"}, 2, REG_A, 0x1200, true, true},
		{"subb high", []string{"MOV B, 0x0510", "SUBB BH, 1"}, 2, REG_B, 0x0410, false, false},
		{"memory operand", []string{"MOV [0x200], 40", "MOV A, 2", "ADD A, [0x200]"}, 3, REG_A, 42, false, false},
		{"regaddress operand", []string{"MOV B, 0x201", "MOV [0x200], 40", "MOV A, 2", "ADD A, [B-1]"}, 4, REG_A, 42, false, false},
		{"movb memory", []string{"MOVB [0x200], 0x7f", "MOV A, [0x200]"}, 2, REG_A, 0x7f00, false, false},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			m := newMachine(t, entry.source...)
			m.steps(t, entry.steps)

			assert.Equal(entry.value, m.reg(entry.reg))
			assert.Equal(entry.carry, m.cpu.Registers.Flag(SR_CARRY), "carry")
			assert.Equal(entry.zero, m.cpu.Registers.Flag(SR_ZERO), "zero")
		})
	}
}

func TestCpu_Jumps(t *testing.T) {
	table := []struct {
		name  string
		setup string
		jump  string
		taken bool
	}{
		{"jmp", "CMP A, 0", "JMP", true},
		{"jz taken", "CMP A, 0", "JZ", true},
		{"jz not", "CMP A, 1", "JZ", false},
		{"jnz", "CMP A, 1", "JNZ", true},
		{"jc", "CMP A, 1", "JC", true},
		{"jnc", "CMP A, 1", "JNC", false},
		{"ja", "CMP B, 1", "JA", true},
		{"ja equal", "CMP B, 5", "JA", false},
		{"jna", "CMP B, 5", "JNA", true},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			m := newMachine(t,
				"MOV B, 5",
				entry.setup,
				entry.jump+" target",
				"MOV C, 1",
				"target: HLT",
			)
			m.steps(t, 3)

			target := uint16(m.prog.Labels["target"])
			if entry.taken {
				assert.Equal(target, m.cpu.Registers.IP())
			} else {
				assert.NotEqual(target, m.cpu.Registers.IP())
			}
		})
	}
}

func TestCpu_JumpRegAddress(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		"MOV A, target",
		"JMP [A+0]",
		"HLT",
		"target: MOV B, 7",
		"HLT",
	)
	m.steps(t, 3)
	assert.Equal(uint16(7), m.reg(REG_B))
}

func TestCpu_Stack(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		"MOV A, 0x1234",
		"PUSH A",
		"PUSH 0x5678",
		"POP B",
		"POP C",
		"CALL sub",
		"HLT",
		"sub: MOV D, [SP+0]",
		"RET",
	)

	sp := m.cpu.Registers.SP()
	m.steps(t, 2)
	assert.Equal(sp-2, m.cpu.Registers.SP())
	word, err := m.mem.LoadWord(int(sp - 2))
	assert.NoError(err)
	assert.Equal(uint16(0x1234), word)

	m.steps(t, 3)
	assert.Equal(uint16(0x5678), m.reg(REG_B))
	assert.Equal(uint16(0x1234), m.reg(REG_C))
	assert.Equal(sp, m.cpu.Registers.SP())

	m.steps(t, 4)
	assert.True(m.cpu.Halted())
	assert.Equal(sp, m.cpu.Registers.SP())

	// The return address pushed by CALL is the HLT.
	assert.Equal(uint16(m.prog.Opcodes[6].Ip), m.reg(REG_D))
}

func TestCpu_DivideByZeroFault(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		"MOV A, 1",
		"DIV A, 0",
	)

	m.steps(t, 1)
	err := m.cpu.Step()
	assert.ErrorIs(err, ErrFault)
	assert.ErrorIs(err, ErrDivideByZero)
	assert.Equal(STATE_FAULT, m.cpu.State)
	assert.True(m.cpu.Registers.Flag(SR_FAULT))

	// Terminal until reset.
	ip := m.cpu.Registers.IP()
	ticks := m.cpu.Ticks
	assert.ErrorIs(m.cpu.Step(), ErrFault)
	assert.ErrorIs(m.cpu.RaiseInterrupt(), ErrFault)
	assert.Equal(ip, m.cpu.Registers.IP())
	assert.Equal(ticks, m.cpu.Ticks)
	assert.False(m.cpu.Pending())

	m.cpu.Reset()
	assert.NoError(m.cpu.Fault())
	assert.False(m.cpu.Registers.Flag(SR_FAULT))
	assert.NoError(m.cpu.Step())
}

func TestCpu_UnknownOpcode(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, "DB 0xff")
	err := m.cpu.Step()
	assert.ErrorIs(err, ErrUnknownOpcode)
	assert.ErrorIs(err, ErrFault)
}

func TestCpu_FetchError(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, "JMP 0x3ff")
	m.steps(t, 1)

	// MOV needs operand bytes past the end of memory.
	assert.NoError(m.mem.StoreByte(0x3ff, 0x15, nil))
	err := m.cpu.Step()
	assert.ErrorIs(err, ErrInstructionFetchError)
}

func TestCpu_IllegalRegister(t *testing.T) {
	assert := assert.New(t)

	// MOV R16, R16 with IP (5) as source.
	m := newMachine(t, "DB 0x10, 0, 5")
	err := m.cpu.Step()
	assert.ErrorIs(err, ErrIllegalInstruction)

	// REGADDRESS based on AL.
	m = newMachine(t, "DB 0x12, 0, 0, 10")
	err = m.cpu.Step()
	assert.ErrorIs(err, ErrIllegalInstruction)
}

// userProgram is a minimal system with vectors, a handler for each and a
// drop to user mode.
var userProgram = []string{
	"JMP start",
	"JMP irq",
	"JMP svc",
	"JMP exc",
	"start: MOV A, user",
	"PUSH 0x0010",            // SR: user mode, IRQMASK
	"PUSH $(USER_STACK_TOP)", // SP
	"PUSH A",                 // IP
	"IRET",
	"irq: INC B",
	"OUT $(IO_IRQEOI), 0xffff",
	"IRET",
	"svc: INC C",
	"IRET",
	"exc: MOV D, [SP+0]", // exception kind
	"ADD SP, 2",
	"IRET",
	"user: SVC",
	"loop: JMP loop",
}

func newUserMachine(t *testing.T, tail ...string) (m *machine) {
	t.Helper()

	asm := &Assembler{}
	asm.Predefine("IO_IRQEOI", "2")
	prog, err := asm.Parse(strings.NewReader(strings.Join(append(slices.Clone(userProgram), tail...), "\n")))
	require.NoError(t, err)

	m = newMachine(t)
	m.prog = prog
	require.NoError(t, m.mem.StoreBytes(0, prog.Code))
	return
}

func TestCpu_DropToUser(t *testing.T) {
	assert := assert.New(t)

	m := newUserMachine(t)

	// JMP start, MOV, 3x PUSH, IRET
	m.steps(t, 6)
	assert.False(m.cpu.Registers.Flag(SR_SUPERVISOR))
	assert.True(m.cpu.Registers.Flag(SR_IRQMASK))
	assert.Equal(uint16(m.prog.Labels["user"]), m.cpu.Registers.IP())
	assert.Equal(uint16(USER_STACK_TOP), m.cpu.Registers.SP())
	assert.Equal(uint16(SUPERVISOR_STACK_TOP), m.reg(REG_SSP))

	// SVC, JMP svc, INC C, IRET
	m.steps(t, 4)
	assert.Equal(uint16(1), m.reg(REG_C))
	assert.False(m.cpu.Registers.Flag(SR_SUPERVISOR))
	assert.Equal(uint16(m.prog.Labels["loop"]), m.cpu.Registers.IP())
	assert.Equal(uint16(USER_STACK_TOP), m.cpu.Registers.SP())
	assert.Equal(uint16(SUPERVISOR_STACK_TOP), m.reg(REG_SSP))
}

func TestCpu_PrivilegedInUserMode(t *testing.T) {
	assert := assert.New(t)

	m := newUserMachine(t)
	// Replace the SVC with CLI, which is privileged.
	cli, _ := Instructions.Find("CLI", nil)
	assert.NoError(m.mem.StoreByte(m.prog.Labels["user"], cli.Opcode, nil))

	m.steps(t, 6)
	m.steps(t, 1) // CLI -> exception
	assert.True(m.cpu.Registers.Flag(SR_SUPERVISOR))
	assert.False(m.cpu.Registers.Flag(SR_IRQMASK))
	assert.Equal(DefaultVectors.Exception, m.cpu.Registers.IP())

	// Exception frame: kind, IP, SP, SR from the top.
	kind, _ := m.cpu.Peek(0)
	ip, _ := m.cpu.Peek(1)
	sp, _ := m.cpu.Peek(2)
	sr, _ := m.cpu.Peek(3)
	assert.Equal(uint16(EXCEPTION_ILLEGAL_INSTRUCTION), kind)
	assert.Equal(uint16(m.prog.Labels["user"]), ip)
	assert.Equal(uint16(USER_STACK_TOP), sp)
	assert.Equal(uint16(0x0010), sr)

	// JMP exc, MOV D, ADD SP, IRET: back at the faulting instruction.
	m.steps(t, 4)
	assert.Equal(uint16(EXCEPTION_ILLEGAL_INSTRUCTION), m.reg(REG_D))
	assert.False(m.cpu.Registers.Flag(SR_SUPERVISOR))
	assert.Equal(uint16(m.prog.Labels["user"]), m.cpu.Registers.IP())
}

func TestCpu_MemoryExceptionFrame(t *testing.T) {
	assert := assert.New(t)

	m := newUserMachine(t, "bad: MOV A, [0x3ff]")
	assert.NoError(m.mem.StoreBytes(m.prog.Labels["user"], []byte{0x80, 0, byte(m.prog.Labels["bad"])}))

	m.steps(t, 6)
	m.steps(t, 2) // JMP bad, MOV -> exception

	assert.Equal(DefaultVectors.Exception, m.cpu.Registers.IP())
	kind, _ := m.cpu.Peek(0)
	addr, _ := m.cpu.Peek(1)
	ip, _ := m.cpu.Peek(2)
	assert.Equal(uint16(EXCEPTION_MEMORY_ACCESS_ERROR), kind)
	assert.Equal(uint16(0x400), addr)
	assert.Equal(uint16(m.prog.Labels["bad"]), ip)
}

func TestCpu_InterruptMasking(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		"JMP start",
		"JMP irq",
		"HLT",
		"HLT",
		"HLT",
		"HLT",
		"HLT",
		"HLT",
		"start: NOP",
		"STI",
		"NOP",
		"irq: HLT",
	)
	m.steps(t, 2)

	// IRQMASK is clear: the request is only recorded.
	ip := m.cpu.Registers.IP()
	assert.NoError(m.cpu.RaiseInterrupt())
	assert.Equal(ip, m.cpu.Registers.IP())
	assert.True(m.cpu.Pending())

	// STI with the line still asserted enters the vector.
	sp := m.cpu.Registers.SP()
	m.steps(t, 1)
	assert.Equal(DefaultVectors.Interrupt, m.cpu.Registers.IP())
	assert.False(m.cpu.Registers.Flag(SR_IRQMASK))
	assert.Equal(sp-6, m.cpu.Registers.SP())

	next, _ := m.cpu.Peek(0)
	assert.Equal(uint16(m.prog.Labels["start"]+2), next)
}

func TestCpu_InterruptWakesHalt(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		"JMP start",
		"JMP irq",
		"HLT",
		"HLT",
		"HLT",
		"HLT",
		"HLT",
		"HLT",
		"start: STI",
		"HLT",
		"MOV C, 2",
		"HLT",
		"irq: MOV B, 1",
		"IRET",
	)
	m.steps(t, 3)
	assert.True(m.cpu.Halted())

	// Raised between steps: entered immediately.
	assert.NoError(m.cpu.RaiseInterrupt())
	assert.False(m.cpu.Halted())
	assert.Equal(DefaultVectors.Interrupt, m.cpu.Registers.IP())
	m.cpu.LowerInterrupt()

	// JMP irq, MOV B, IRET, MOV C
	m.steps(t, 4)
	assert.Equal(uint16(1), m.reg(REG_B))
	assert.Equal(uint16(2), m.reg(REG_C))
	assert.True(m.cpu.Registers.Flag(SR_IRQMASK))
}

func TestCpu_PicUnmaskInOut(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		"JMP start",
		"JMP irq",
		"HLT",
		"HLT",
		"HLT",
		"HLT",
		"HLT",
		"HLT",
		"start: STI",
		"OUT 0, 0x0001",
		"MOV C, 2",
		"HLT",
		"irq: MOV B, 1",
		"OUT 2, 0x0001",
		"IRET",
	)

	assert.NoError(m.pic.Raise(0))
	assert.False(m.cpu.Pending())
	m.steps(t, 3)

	// OUT unmasks the line; the interrupt is taken after the OUT.
	assert.Equal(DefaultVectors.Interrupt, m.cpu.Registers.IP())
	next, _ := m.cpu.Peek(0)
	assert.Equal(uint16(m.prog.Labels["start"]+6), next)

	// The line is still held: EOI re-latches it, and IRET chains
	// straight back into the handler.
	m.steps(t, 4)
	assert.Equal(DefaultVectors.Interrupt, m.cpu.Registers.IP())

	assert.NoError(m.pic.Lower(0))
	m.steps(t, 4)
	assert.Equal(uint16(0), m.pic.Status())
	m.steps(t, 2)
	assert.Equal(uint16(2), m.reg(REG_C))
	assert.True(m.cpu.Halted())
}

func TestCpu_StackFault(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t,
		"MOV SP, 1",
		"PUSH A",
	)
	m.steps(t, 1)
	err := m.cpu.Step()
	assert.ErrorIs(err, ErrStackAccessError)
	assert.ErrorIs(err, ErrFault)
}

func TestCpu_Events(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, "MOV A, 5", "ADD A, 3", "HLT")
	rec := &event.Recorder{}
	m.cpu.SetSink(rec)
	m.steps(t, 3)

	assert.Len(rec.Of(event.SOURCE_ALU), 1)

	var ops []string
	for _, ev := range rec.Of(event.SOURCE_CPU) {
		ops = append(ops, ev.(event.Cpu).Op)
	}
	assert.Equal([]string{"execute", "execute", "halt", "execute"}, ops)
	assert.Equal("MOV A, 0x0005", rec.Of(event.SOURCE_CPU)[0].(event.Cpu).Text)
}

func TestCpu_Defines(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t)
	defs := map[string]string{}
	for name, value := range m.cpu.Defines() {
		defs[name] = value
	}
	assert.Equal("3", defs["VECTOR_INTERRUPT"])
	assert.Equal("9", defs["VECTOR_EXCEPTION"])
	assert.Equal("4", defs["EXC_ILLEGAL_INSTRUCTION"])
}
