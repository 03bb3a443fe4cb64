package emulator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/sim16/cpu"
	"github.com/ezrec/sim16/event"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.Equal(1024, emu.Cpu.Memory.Size())
	assert.Equal(0, emu.Ip())
	assert.Equal(-1, emu.LineNo())
	assert.True(emu.Cpu.Registers.Flag(cpu.SR_SUPERVISOR))
	assert.NotNil(emu.Cpu.Memory.Region(0x2e0))
}

// load assembles program with the emulator defines and resets onto it.
func load(t *testing.T, emu *Emulator, program ...string) *cpu.Program {
	t.Helper()

	asm := &cpu.Assembler{}
	for name, value := range emu.Defines() {
		asm.Predefine(name, value)
	}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	require.NoError(t, err)

	emu.Program = prog
	require.NoError(t, emu.Reset())
	return prog
}

func doRunSingle(emu *Emulator, program []string, input []byte, t *testing.T) (output []byte) {
	assert := assert.New(t)

	prog := load(t, emu, program...)

	emu.Tape.Input = bytes.NewReader(input)
	tape_output := &bytes.Buffer{}
	emu.Tape.Output = tape_output

	for n, op := range prog.Opcodes {
		if op.Data {
			continue
		}
		here := program[op.LineNo]
		assert.Equal(op.LineNo, emu.LineNo(), here)
		assert.Equal(op.Ip, emu.Ip(), here)

		debug := emu.Program.Debug(uint16(emu.Ip()))
		assert.Equal(&prog.Opcodes[n], debug.Opcode)

		done, err := emu.Tick()
		if !assert.NoError(err, here) {
			t.Log(emu.Cpu.String())
			t.FailNow()
		}
		assert.Equal(n == len(prog.Opcodes)-1, done, here)
	}

	output = tape_output.Bytes()
	return
}

func TestEmulator_Single(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	output := doRunSingle(emu, []string{
		"MOV A, 'H'",
		"OUT $(IO_TAPE_DATA), A",
		"MOVB AL, 'i'",
		"OUT $(IO_TAPE_DATA), A",
		"IN B, $(IO_TAPE_DATA)",
		"OUT $(IO_TAPE_DATA), B",
		"HLT",
	}, []byte("!"), t)

	assert.Equal([]byte("Hi!"), output)
}

func TestEmulator_TapeEcho(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	load(t, emu,
		"loop: IN A, $(IO_TAPE_STATUS)",
		"  AND A, $(TAPE_READY)",
		"  JZ done",
		"  IN A, $(IO_TAPE_DATA)",
		"  SUB A, 32 ; to upper case",
		"  OUT $(IO_TAPE_DATA), A",
		"  JMP loop",
		"done: HLT",
	)

	emu.Tape.Input = strings.NewReader("echo")
	tape_output := &bytes.Buffer{}
	emu.Tape.Output = tape_output

	done, err := emu.Run(1000)
	assert.NoError(err)
	assert.True(done)
	assert.Equal("ECHO", tape_output.String())
}

// vectorTable is the reset and vector slots.
var vectorTable = []string{
	"JMP start",
	"JMP irq",
	"JMP svc",
	"JMP exc",
	"svc: exc: HLT",
}

func TestEmulator_Timer(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	load(t, emu, append(vectorTable,
		"start: OUT $(IO_IRQMASK), $(1 << IRQ_TIMER)",
		"  OUT $(IO_TIMER_PRELOAD), 20",
		"  STI",
		"wait: CMP B, 3",
		"  JNZ wait",
		"  CLI",
		"  OUT $(IO_TIMER_PRELOAD), 0",
		"  HLT",
		"irq: INC B",
		"  OUT $(IO_IRQEOI), $(1 << IRQ_TIMER)",
		"  IRET",
	)...)

	done, err := emu.Run(1000)
	assert.NoError(err)
	assert.True(done)

	b, _ := emu.Cpu.Registers.Get(cpu.REG_B)
	assert.Equal(uint16(3), b)
	assert.Equal(uint16(0), emu.Pic.Status())
}

func TestEmulator_Keypad(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	load(t, emu, append(vectorTable,
		"start: MOV C, $(DISPLAY_BASE)",
		"  OUT $(IO_IRQMASK), $(1 << IRQ_KEYPAD)",
		"  STI",
		"idle: HLT",
		"  JMP idle",
		"irq: IN A, $(IO_KEYPAD_DATA)",
		"  CMPB AL, 10",
		"  JZ finish",
		"  MOVB [C], AL",
		"  INC C",
		"  OUT $(IO_IRQEOI), $(1 << IRQ_KEYPAD)",
		"  IRET",
		"finish: HLT",
	)...)

	// Sleeping with interrupts enabled is not done.
	done, err := emu.Run(20)
	assert.NoError(err)
	assert.False(done)
	assert.True(emu.Cpu.Halted())

	for _, key := range "hey\n" {
		assert.True(emu.Press(uint16(key)))
	}

	done, err = emu.Run(200)
	assert.NoError(err)
	assert.True(done)
	assert.True(strings.HasPrefix(emu.Display.Text(), "hey "), emu.Display.Text())
	assert.Len(emu.KeyRequest, 0)
}

func TestEmulator_Fault(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Config.ProtectVectors = true
	load(t, emu,
		"NOP",
		"MOV [$(VECTOR_EXCEPTION)], 0",
		"HLT",
	)

	done, err := emu.Tick()
	assert.NoError(err)
	assert.False(done)

	done, err = emu.Tick()
	assert.True(done)
	assert.ErrorIs(err, cpu.ErrFault)
	assert.ErrorIs(err, cpu.ErrMemoryAccessError)

	var rt *ErrRuntime
	if assert.ErrorAs(err, &rt) {
		assert.Equal(1, rt.LineNo)
		assert.Equal(uint16(1), rt.Ip)
	}

	// Faulted until reset.
	done, err = emu.Tick()
	assert.True(done)
	assert.ErrorIs(err, cpu.ErrFault)

	// Without protection the store succeeds.
	emu.Config.ProtectVectors = false
	assert.NoError(emu.Reset())
	done, err = emu.Run(10)
	assert.NoError(err)
	assert.True(done)
	assert.Equal(3, emu.Ticks())
	word, err := emu.Cpu.Memory.LoadWord(9)
	assert.NoError(err)
	assert.Equal(uint16(0), word)
}

func TestEmulator_Events(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	load(t, emu,
		"OUT $(IO_IRQMASK), 1",
		"HLT",
	)

	rec := &event.Recorder{}
	emu.SetSink(rec)

	done, err := emu.Run(10)
	assert.NoError(err)
	assert.True(done)

	assert.NotEmpty(rec.Of(event.SOURCE_CPU))
	assert.NotEmpty(rec.Of(event.SOURCE_IO))
	assert.NotEmpty(rec.Of(event.SOURCE_IRQ))
	assert.NotEmpty(rec.Of(event.SOURCE_REGISTER))
}

func TestEmulator_Defines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	defines := map[string]string{}
	for name, value := range emu.Defines() {
		defines[name] = value
	}

	assert.Equal("1024", defines["MEMORY_SIZE"])
	assert.Equal("6", defines["VECTOR_SYSCALL"])
	assert.Equal("8", defines["IO_TAPE_DATA"])
	assert.Equal("1", defines["IRQ_TIMER"])
	assert.Equal("736", defines["DISPLAY_BASE"])
}

func TestEmulator_Config(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.MemorySize = 4096
	cfg.SupervisorStack = 0x1000
	cfg.Display.Base = 0x0f00
	cfg.Tape.Data = 0x20

	emu, err := NewEmulatorConfig(cfg)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(4096, emu.Cpu.Memory.Size())
	assert.Equal(uint16(0x1000), emu.Cpu.Registers.SP())
	assert.NotNil(emu.Cpu.Memory.Region(0x0f00))

	load(t, emu, "OUT $(IO_TAPE_DATA), 'z'", "HLT")
	tape_output := &bytes.Buffer{}
	emu.Tape.Output = tape_output
	_, err = emu.Run(10)
	assert.NoError(err)
	assert.Equal("z", tape_output.String())

	cfg.MemorySize = 0x20000
	_, err = NewEmulatorConfig(cfg)
	assert.ErrorIs(err, ErrConfig)
}

func TestErrRuntime(t *testing.T) {
	assert := assert.New(t)

	err := &ErrRuntime{LineNo: -1, Ip: 0x20, Err: cpu.ErrFault}
	assert.Equal("ip 0x0020 "+cpu.ErrFault.Error(), err.Error())
	assert.ErrorIs(err, cpu.ErrFault)

	err = &ErrRuntime{LineNo: 3, Ip: 0x20, Err: cpu.ErrFault}
	assert.Equal("line 3 "+cpu.ErrFault.Error(), err.Error())
}
