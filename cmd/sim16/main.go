// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/cpu"
	"github.com/ezrec/sim16/emulator"
	"github.com/ezrec/sim16/event"
	"github.com/ezrec/sim16/image"
)

func main() {
	var compile string
	var input string
	var output string
	var save bool
	var steps int
	var verbose bool
	var trace bool
	var monitor bool
	var keypad bool
	var config string
	var tapeIn string
	var tapeOut string

	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.StringVar(&input, "i", "", ".img program image to load")
	flag.StringVar(&output, "o", "", ".img program image to write")
	flag.BoolVar(&save, "s", false, "Save the image only, do not execute")
	flag.IntVar(&steps, "n", 0, "Maximum steps to execute (0 is unlimited)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&trace, "t", false, "Trace machine events")
	flag.BoolVar(&monitor, "m", false, "Interactive monitor")
	flag.BoolVar(&keypad, "k", false, "Interactive keypad, using the terminal")
	flag.StringVar(&config, "config", "", "Machine configuration .toml file")
	flag.StringVar(&tapeIn, "tape-in", "", "Tape input ('-' for stdin)")
	flag.StringVar(&tapeOut, "tape-out", "-", "Tape output ('-' for stdout)")

	flag.Parse()

	if flag.NArg() != 0 {
		logrus.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if len(compile) != 0 && len(input) != 0 {
		logrus.Fatalf("%v: -c and -i are exclusive", os.Args[0])
	}

	if len(config) == 0 {
		config = emulator.FindConfig()
	}

	cfg := emulator.DefaultConfig()
	if len(config) != 0 {
		var err error
		cfg, err = emulator.LoadConfig(config)
		if err != nil {
			logrus.Fatalf("%v: %v", config, err)
		}
	}
	cfg.Verbose = cfg.Verbose || verbose

	emu, err := emulator.NewEmulatorConfig(cfg)
	if err != nil {
		logrus.Fatal(err)
	}

	var prog *cpu.Program
	switch {
	case len(compile) != 0:
		prog, err = assemble(emu, compile)
		if err != nil {
			logrus.Fatalf("%v: %v", compile, err)
		}
	case len(input) != 0:
		prog, err = image.ReadFile(input)
		if err != nil {
			logrus.Fatalf("%v: %v", input, err)
		}
	default:
		logrus.Fatalf("%v: one of -c or -i is required", os.Args[0])
	}

	if len(output) != 0 {
		err = image.WriteFile(output, prog, image.FLAG_SNAPPY)
		if err != nil {
			logrus.Fatalf("%v: %v", output, err)
		}
	}

	if save {
		return
	}

	if (monitor || keypad) && tapeIn == "-" {
		logrus.Fatalf("%v: stdin is in use by the terminal", os.Args[0])
	}

	switch tapeIn {
	case "":
	case "-":
		emu.Tape.Input = os.Stdin
	default:
		inf, err := os.Open(tapeIn)
		if err != nil {
			logrus.Fatalf("%v: %v", tapeIn, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}

	switch tapeOut {
	case "":
	case "-":
		emu.Tape.Output = os.Stdout
	default:
		ouf, err := os.Create(tapeOut)
		if err != nil {
			logrus.Fatalf("%v: %v", tapeOut, err)
		}
		defer ouf.Close()
		emu.Tape.Output = ouf
	}

	if trace {
		emu.SetSink(&event.LogSink{})
		logrus.SetLevel(logrus.DebugLevel)
	}

	emu.Program = prog
	err = emu.Reset()
	if err != nil {
		logrus.Fatal(err)
	}

	switch {
	case monitor:
		err = runMonitor(emu)
	case keypad:
		err = runKeypad(emu, steps)
	default:
		err = run(emu, steps)
	}
	if err != nil {
		logrus.Fatal(err)
	}
}

// assemble reads and assembles path, with the machine defines available
// as equates.
func assemble(emu *emulator.Emulator, path string) (prog *cpu.Program, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for name, value := range emu.Defines() {
		asm.Predefine(name, value)
	}

	prog, err = asm.Parse(inf)
	return
}

// run executes the program without interaction.
func run(emu *emulator.Emulator, steps int) (err error) {
	done, err := emu.Run(steps)
	if err != nil {
		return
	}

	if !done {
		logrus.WithField("steps", steps).Warn("step limit reached")
	}

	if text := strings.TrimSpace(emu.Display.Text()); len(text) != 0 {
		logrus.WithField("display", text).Info("display")
	}

	return
}
