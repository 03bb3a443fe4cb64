package io

import (
	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/event"
)

//go:generate go tool stringer -linecomment -type=TimerState

// TimerState is the countdown state of the Timer. A PRELOADED timer waits
// one tick before RUNNING; a DEPLETED timer reloads on the next tick.
type TimerState int

const (
	TIMER_RESET     = TimerState(iota) // RESET
	TIMER_PRELOADED                    // PRELOADED
	TIMER_RUNNING                      // RUNNING
	TIMER_DEPLETED                     // DEPLETED
)

// TimerPorts are the I/O addresses of the timer registers.
type TimerPorts struct {
	Preload int `toml:"timer_preload"`
	Counter int `toml:"timer_counter"`
}

// DefaultTimerPorts are the conventional timer addresses.
var DefaultTimerPorts = TimerPorts{Preload: 5, Counter: 6}

// TIMER_LINE is the interrupt line of the timer.
const TIMER_LINE = 1

// Timer is an auto-repeating countdown peripheral, ticked once per
// executed (or halted) CPU step.
type Timer struct {
	Verbose bool
	Ports   TimerPorts
	Line    int
	Pic     *Pic

	State   TimerState
	preload uint16
	counter uint16

	io *Map
}

// NewTimer creates a timer raising its interrupt on pic.
func NewTimer(ports TimerPorts, pic *Pic) *Timer {
	return &Timer{
		Ports: ports,
		Line:  TIMER_LINE,
		Pic:   pic,
	}
}

// Attach registers the timer registers in the I/O map.
func (tm *Timer) Attach(m *Map) (err error) {
	tm.Reset()

	_, err = m.Add("TIMER_PRELOAD", tm.Ports.Preload, READ_WRITE, 0, tm)
	if err != nil {
		return
	}

	_, err = m.Add("TIMER_COUNTER", tm.Ports.Counter, READ_ONLY, 0, tm)
	if err != nil {
		return
	}

	tm.io = m
	return
}

// Reset stops the timer.
func (tm *Timer) Reset() {
	tm.State = TIMER_RESET
	tm.preload = 0
	tm.counter = 0
}

// Preload returns the reload value.
func (tm *Timer) Preload() uint16 { return tm.preload }

// Counter returns the current count.
func (tm *Timer) Counter() uint16 { return tm.counter }

// Notify handles writes to TIMER_PRELOAD.
func (tm *Timer) Notify(reg *Register, access event.Access) (err error) {
	if access != event.ACCESS_WRITE || reg.Address != tm.Ports.Preload {
		return
	}

	tm.preload = reg.Value
	tm.counter = reg.Value
	if tm.preload == 0 {
		tm.State = TIMER_RESET
	} else {
		tm.State = TIMER_PRELOADED
	}

	if tm.Verbose {
		logrus.WithFields(logrus.Fields{
			"preload": tm.preload,
			"state":   tm.State.String(),
		}).Debug("timer: preload")
	}

	return tm.sync()
}

func (tm *Timer) sync() (err error) {
	if tm.io == nil {
		return
	}
	return tm.io.Set(tm.Ports.Counter, tm.counter)
}

// Tick advances the timer by one clock.
func (tm *Timer) Tick() (err error) {
	switch tm.State {
	case TIMER_RESET:
		return
	case TIMER_PRELOADED:
		tm.State = TIMER_RUNNING
		return
	case TIMER_DEPLETED:
		tm.counter = tm.preload
		tm.State = TIMER_RUNNING
		return tm.sync()
	}

	tm.counter--
	err = tm.sync()
	if err != nil {
		return
	}

	if tm.counter != 0 {
		return
	}

	tm.State = TIMER_DEPLETED

	if tm.Verbose {
		logrus.WithField("line", tm.Line).Debug("timer: depleted")
	}

	if tm.Pic != nil {
		err = tm.Pic.Trigger(tm.Line)
	}

	return
}
