package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mgutz/ansi"
	"github.com/shibukawa/configdir"

	"github.com/ezrec/sim16/cpu"
	"github.com/ezrec/sim16/emulator"
	"github.com/ezrec/sim16/translate"
)

var f = translate.From

var (
	ErrCommand  = errors.New(f("unknown command"))
	ErrArgument = errors.New(f("invalid argument"))
)

var chSame = ansi.ColorCode("default:default")
var chNew = ansi.ColorCode("default+bu:default")

// monitorRegisters are shown by the regs command, in order.
var monitorRegisters = []cpu.RegisterIndex{
	cpu.REG_A, cpu.REG_B, cpu.REG_C, cpu.REG_D,
	cpu.REG_SP, cpu.REG_IP, cpu.REG_SR, cpu.REG_USP, cpu.REG_SSP,
}

const monitorHelp = `step [n]          execute n instructions (default 1)
run [n]           run until done, or for n steps
regs              show registers, changes highlighted
mem addr [len]    dump memory
dis [addr] [n]    disassemble n instructions (default at IP)
irq line          trigger an interrupt line
key value         press a key ('c' or number)
display           show the display
reset             reset the machine
quit              leave the monitor
`

// Monitor is an interactive command interpreter over an emulator.
type Monitor struct {
	emu  *emulator.Emulator
	out  io.Writer
	last map[cpu.RegisterIndex]uint16
}

// NewMonitor creates a monitor writing to out.
func NewMonitor(emu *emulator.Emulator, out io.Writer) *Monitor {
	mon := &Monitor{emu: emu, out: out}
	mon.snapshot()
	return mon
}

func (mon *Monitor) snapshot() {
	mon.last = make(map[cpu.RegisterIndex]uint16, len(monitorRegisters))
	for _, reg := range monitorRegisters {
		mon.last[reg], _ = mon.emu.Cpu.Registers.Get(reg)
	}
}

// Prompt shows the next instruction.
func (mon *Monitor) Prompt() string {
	text, _, err := cpu.Disassemble(mon.emu.Cpu.Memory, mon.emu.Ip())
	if err != nil {
		return "> "
	}
	return fmt.Sprintf("[%04x %s] ", mon.emu.Ip(), text)
}

func parseArg(args []string, n int, value int) (int, error) {
	if len(args) <= n {
		return value, nil
	}
	v, err := strconv.ParseInt(args[n], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrArgument, args[n])
	}
	return int(v), nil
}

// Exec runs one command line. quit is set by the quit command.
func (mon *Monitor) Exec(line string) (quit bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}

	emu := mon.emu

	switch strings.ToLower(args[0]) {
	case "help", "?":
		fmt.Fprint(mon.out, monitorHelp)
	case "q", "quit", "exit":
		quit = true
	case "s", "step":
		var n int
		n, err = parseArg(args, 1, 1)
		if err != nil {
			return
		}
		var done bool
		done, err = emu.Run(max(n, 1))
		if err != nil {
			return
		}
		if done {
			fmt.Fprintln(mon.out, "done")
		}
		mon.regs()
	case "r", "run":
		var n int
		n, err = parseArg(args, 1, 0)
		if err != nil {
			return
		}
		var done bool
		done, err = emu.Run(n)
		if err != nil {
			return
		}
		fmt.Fprintf(mon.out, "ticks %d done %v\n", emu.Ticks(), done)
	case "regs":
		mon.regs()
	case "mem":
		if len(args) < 2 {
			err = fmt.Errorf("%w: mem addr [len]", ErrArgument)
			return
		}
		var addr, length int
		addr, err = parseArg(args, 1, 0)
		if err != nil {
			return
		}
		length, err = parseArg(args, 2, 16)
		if err != nil {
			return
		}
		mon.dump(addr, length)
	case "dis":
		var addr, n int
		addr, err = parseArg(args, 1, emu.Ip())
		if err != nil {
			return
		}
		n, err = parseArg(args, 2, 8)
		if err != nil {
			return
		}
		mon.disassemble(addr, n)
	case "irq":
		var line int
		line, err = parseArg(args, 1, -1)
		if err != nil {
			return
		}
		err = emu.Pic.Trigger(line)
	case "key":
		if len(args) < 2 {
			err = fmt.Errorf("%w: key value", ErrArgument)
			return
		}
		key := args[1]
		var value int
		if len(key) == 3 && key[0] == '\'' && key[2] == '\'' {
			value = int(key[1])
		} else {
			value, err = parseArg(args, 1, 0)
			if err != nil {
				return
			}
		}
		if !emu.Press(uint16(value)) {
			err = fmt.Errorf("%w: key queue full", ErrArgument)
		}
	case "display":
		fmt.Fprintf(mon.out, "|%s|\n", emu.Display.Text())
	case "reset":
		err = emu.Reset()
		mon.snapshot()
	default:
		err = fmt.Errorf("%w: %v", ErrCommand, args[0])
	}

	return
}

// regs prints the registers, highlighting those changed since the last
// display.
func (mon *Monitor) regs() {
	bank := mon.emu.Cpu.Registers

	var fields []string
	for _, reg := range monitorRegisters {
		value, _ := bank.Get(reg)
		color := chSame
		if value != mon.last[reg] {
			color = chNew
		}
		fields = append(fields, fmt.Sprintf("%s=%s%s%s", reg, color, translate.Hex(value), ansi.Reset))
	}

	fmt.Fprintln(mon.out, strings.Join(fields, " "))
	fmt.Fprintf(mon.out, "SR=%v state=%v ticks=%d\n", bank.SR(), mon.emu.Cpu.State, mon.emu.Ticks())
	mon.snapshot()
}

// dump prints memory, 16 bytes a row.
func (mon *Monitor) dump(addr, length int) {
	data := mon.emu.Cpu.Memory.Bytes(addr, length)
	for n := 0; n < len(data); n += 16 {
		row := data[n:min(n+16, len(data))]
		var hex, text strings.Builder
		for _, b := range row {
			fmt.Fprintf(&hex, "%02x ", b)
			if b >= 0x20 && b < 0x7f {
				text.WriteByte(b)
			} else {
				text.WriteByte('.')
			}
		}
		fmt.Fprintf(mon.out, "%04x  %-48s %s\n", addr+n, hex.String(), text.String())
	}
}

// disassemble prints n instructions from addr.
func (mon *Monitor) disassemble(addr, n int) {
	mem := mon.emu.Cpu.Memory
	for range n {
		if addr >= mem.Size() {
			return
		}
		text, size, err := cpu.Disassemble(mem, addr)
		if err != nil && size == 0 {
			fmt.Fprintf(mon.out, "%04x  %v\n", addr, err)
			return
		}
		marker := " "
		if addr == mon.emu.Ip() {
			marker = ">"
		}
		fmt.Fprintf(mon.out, "%s%04x  %-12s %s\n", marker, addr, strings.TrimSpace(fmt.Sprintf("% x", mem.Bytes(addr, size))), text)
		addr += size
	}
}

// runMonitor runs the interactive monitor on the terminal.
func runMonitor(emu *emulator.Emulator) (err error) {
	configDirs := configdir.New("ezrec", "sim16")
	cacheDir := configDirs.QueryCacheFolder()
	historyPath := ""
	if err := cacheDir.MkdirAll(); err == nil {
		historyPath = filepath.Join(cacheDir.Path, "history")
	}

	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "\n",
		HistoryFile:     historyPath,
	})
	if err != nil {
		return
	}
	defer rl.Close()

	mon := NewMonitor(emu, rl.Stdout())

	for {
		rl.SetPrompt(mon.Prompt())

		line, rerr := rl.Readline()
		if rerr == readline.ErrInterrupt {
			continue
		}
		if rerr != nil {
			// EOF
			return
		}

		quit, cerr := mon.Exec(line)
		if cerr != nil {
			fmt.Fprintln(rl.Stderr(), cerr)
		}
		if quit {
			return
		}
	}
}
