//go:build unix

package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/ezrec/sim16/emulator"
)

const keyInterrupt = 0x03

// keyboard reads raw stdin and queues each byte as a keypad press.
type keyboard struct {
	emu     *emulator.Emulator
	fd      int
	state   *term.State
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once
	// Interrupt is closed when Ctrl-C is read.
	Interrupt chan struct{}
}

func newKeyboard(emu *emulator.Emulator) *keyboard {
	return &keyboard{
		emu:       emu,
		fd:        int(os.Stdin.Fd()),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		Interrupt: make(chan struct{}),
	}
}

func (kb *keyboard) Start() (err error) {
	kb.state, err = term.MakeRaw(kb.fd)
	if err != nil {
		return
	}

	err = unix.SetNonblock(kb.fd, true)
	if err != nil {
		_ = term.Restore(kb.fd, kb.state)
		kb.state = nil
		return
	}

	go kb.read()

	return
}

func (kb *keyboard) read() {
	defer close(kb.done)

	buf := make([]byte, 1)
	for {
		select {
		case <-kb.stopCh:
			return
		default:
		}

		n, err := unix.Read(kb.fd, buf)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || (err == nil && n == 0) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}

		b := buf[0]
		switch b {
		case keyInterrupt:
			close(kb.Interrupt)
			return
		case '\r':
			b = '\n'
		case 0x7f:
			b = 0x08
		}

		if !kb.emu.Press(uint16(b)) {
			logrus.Debugf("keyboard: dropped 0x%02x", b)
		}
	}
}

// Stop ends the reader and restores the terminal.
func (kb *keyboard) Stop() {
	kb.stopped.Do(func() {
		close(kb.stopCh)
	})
	<-kb.done
	_ = unix.SetNonblock(kb.fd, false)
	if kb.state != nil {
		_ = term.Restore(kb.fd, kb.state)
		kb.state = nil
	}
}

// runKeypad runs the emulator with the terminal as the keypad, redrawing
// the display on a single line whenever it changes.
func runKeypad(emu *emulator.Emulator, steps int) (err error) {
	kb := newKeyboard(emu)
	err = kb.Start()
	if err != nil {
		return
	}
	defer kb.Stop()

	shown := ""
	redraw := func() {
		text := emu.Display.Text()
		if text != shown {
			fmt.Fprintf(os.Stdout, "\r%s", text)
			shown = text
		}
	}

	for n := 0; steps <= 0 || n < steps; n++ {
		select {
		case <-kb.Interrupt:
			fmt.Fprint(os.Stdout, "\r\n")
			return
		default:
		}

		var done bool
		done, err = emu.Tick()
		redraw()
		if err != nil || done {
			fmt.Fprint(os.Stdout, "\r\n")
			return
		}

		// Halted and waiting for an interrupt.
		if emu.Cpu.Halted() {
			time.Sleep(time.Millisecond)
		}
	}

	fmt.Fprint(os.Stdout, "\r\n")
	logrus.WithField("steps", steps).Warn("step limit reached")
	return
}
