// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/cpu"
	"github.com/ezrec/sim16/event"
	"github.com/ezrec/sim16/internal"
	"github.com/ezrec/sim16/io"
	"github.com/ezrec/sim16/memory"
)

// VECTORS_REGION is the memory region id of the protected vector table.
const VECTORS_REGION = "vectors"

// KEY_QUEUE is the depth of the KeyRequest channel.
const KEY_QUEUE = 16

// Emulator state. CPU + memory + I/O devices.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.
	Config   Config       // Machine configuration, applied by Reset.

	Pic     *io.Pic     // Interrupt controller.
	Timer   *io.Timer   // Countdown timer.
	Keypad  *io.Keypad  // Keypad input.
	Tape    *io.Tape    // Tape serial channel.
	Display *io.Display // Memory mapped display.

	// KeyRequest queues key presses from other goroutines. Keys are
	// delivered to the keypad between instructions.
	KeyRequest chan uint16

	sink event.Sink
}

// NewEmulator creates a new emulator with the default configuration.
func NewEmulator() (emu *Emulator) {
	emu, _ = NewEmulatorConfig(DefaultConfig())
	return
}

// NewEmulatorConfig creates a new emulator with the given configuration.
func NewEmulatorConfig(cfg Config) (emu *Emulator, err error) {
	err = cfg.Validate()
	if err != nil {
		return
	}

	emu = &Emulator{
		Program:    &cpu.Program{},
		Config:     cfg,
		Verbose:    cfg.Verbose,
		KeyRequest: make(chan uint16, KEY_QUEUE),
	}

	emu.build()

	err = emu.Reset()
	return
}

// build creates the machine parts from the configuration.
func (emu *Emulator) build() {
	cfg := &emu.Config

	mem := memory.NewMemory(cfg.MemorySize)
	iomap := io.NewMap()

	emu.Cpu = cpu.NewCpu(mem, iomap)

	old := emu.Tape

	emu.Pic = io.NewPic(cfg.Pic)
	emu.Pic.Cpu = emu.Cpu
	emu.Timer = io.NewTimer(cfg.Timer, emu.Pic)
	emu.Keypad = io.NewKeypad(cfg.Keypad, emu.Pic)
	emu.Tape = io.NewTape(cfg.Tape)
	if old != nil {
		emu.Tape.Input = old.Input
		emu.Tape.Output = old.Output
	}
	emu.Display = io.NewDisplay(cfg.Display)

	emu.Cpu.Tickers = []cpu.Ticker{emu.Timer}

	emu.SetSink(emu.sink)
}

// SetSink routes the events of every machine part to sink.
func (emu *Emulator) SetSink(sink event.Sink) {
	emu.sink = sink
	emu.Cpu.SetSink(sink)
	emu.Cpu.Io.Sink = sink
	emu.Pic.Sink = sink
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%v", emu.Config.MemorySize),
	}

	return internal.IterSeq2Concat(maps.All(defines),
		emu.Cpu.Defines(),
		emu.Pic.Defines(),
		emu.Timer.Defines(),
		emu.Keypad.Defines(),
		emu.Tape.Defines(),
		emu.Display.Defines(),
	)
}

// setVerbose sets the verbosity of every machine part.
func (emu *Emulator) setVerbose(verbose bool) {
	emu.Cpu.Verbose = verbose
	emu.Cpu.Memory.Verbose = verbose
	emu.Cpu.Io.Verbose = verbose
	emu.Pic.Verbose = verbose
	emu.Timer.Verbose = verbose
	emu.Keypad.Verbose = verbose
	emu.Tape.Verbose = verbose
}

// Reset rebuilds the memory map and I/O space, reloads the program and
// resets the CPU. The tape streams are kept.
func (emu *Emulator) Reset() (err error) {
	cfg := &emu.Config

	if emu.Cpu == nil || emu.Cpu.Memory.Size() != cfg.MemorySize {
		emu.build()
	}

	emu.setVerbose(false)

	emu.Cpu.Vectors = cfg.Vectors
	_ = emu.Cpu.Registers.SetReset(cpu.REG_USP, cfg.UserStack)
	_ = emu.Cpu.Registers.SetReset(cpu.REG_SSP, cfg.SupervisorStack)

	emu.Pic.Ports = cfg.Pic
	emu.Timer.Ports = cfg.Timer
	emu.Keypad.Ports = cfg.Keypad
	emu.Tape.Ports = cfg.Tape
	emu.Display.Layout = cfg.Display

	mem := emu.Cpu.Memory
	iomap := emu.Cpu.Io

	mem.Reset()
	iomap.Reset()

	for _, attach := range []func(*io.Map) error{
		emu.Pic.Attach,
		emu.Timer.Attach,
		emu.Keypad.Attach,
		emu.Tape.Attach,
	} {
		err = attach(iomap)
		if err != nil {
			return
		}
	}

	err = emu.Display.Attach(mem)
	if err != nil {
		return
	}

	if cfg.ProtectVectors {
		_, err = mem.AddRegion(VECTORS_REGION, 0, cfg.vectorsEnd(), memory.READ_ONLY, emu)
		if err != nil {
			return
		}
	}

	if emu.Program != nil {
		err = mem.StoreBytes(0, emu.Program.Code)
		if err != nil {
			return
		}
	}

	// Drop keys queued before the reset.
	for len(emu.KeyRequest) > 0 {
		<-emu.KeyRequest
	}

	emu.Cpu.Reset()

	emu.setVerbose(emu.Verbose)

	if emu.Verbose {
		logrus.WithFields(logrus.Fields{
			"memory": cfg.MemorySize,
			"code":   len(emu.Program.Code),
		}).Debug("emulator: reset")
	}

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Ip returns current instruction pointer.
func (emu *Emulator) Ip() int {
	return int(emu.Cpu.Registers.IP())
}

// LineNo returns the 0-based source line of the executing opcode, or -1
// if IP is outside the program listing.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return -1
	}

	dbg := emu.Program.Debug(emu.Cpu.Registers.IP())
	if dbg.Opcode == nil {
		return -1
	}

	return dbg.LineNo
}

// Done returns true if the CPU can make no further progress: it is
// faulted, or halted with interrupts disabled.
func (emu *Emulator) Done() bool {
	if emu.Cpu.State == cpu.STATE_FAULT {
		return true
	}
	return emu.Cpu.Halted() && !emu.Cpu.Registers.Flag(cpu.SR_IRQMASK)
}

// Press queues a key for the keypad. It is safe to call from another
// goroutine; the key is dropped if the queue is full.
func (emu *Emulator) Press(key uint16) (queued bool) {
	select {
	case emu.KeyRequest <- key:
		queued = true
	default:
	}
	return
}

// deliverKey hands one queued key to the keypad, once the previous key
// has been read.
func (emu *Emulator) deliverKey() (err error) {
	if emu.Keypad.Ready() {
		return
	}

	select {
	case key := <-emu.KeyRequest:
		err = emu.Keypad.Press(key)
	default:
	}
	return
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.setVerbose(emu.Verbose)

	lineno := emu.LineNo()
	ip := emu.Cpu.Registers.IP()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Ip: ip, Err: err}
		}
	}()

	err = emu.deliverKey()
	if err != nil {
		return
	}

	if emu.Done() {
		done = true
		if emu.Cpu.State != cpu.STATE_FAULT {
			return
		}
	}

	err = emu.Cpu.Step()
	done = emu.Done()
	return
}

// Run ticks until the program is done, or limit ticks have passed when
// limit is positive.
func (emu *Emulator) Run(limit int) (done bool, err error) {
	for n := 0; limit <= 0 || n < limit; n++ {
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}
	return
}
