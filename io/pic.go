package io

import (
	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/event"
)

// LINE_COUNT is the number of interrupt lines.
const LINE_COUNT = 16

// Interrupter is the control unit side of the interrupt signal.
type Interrupter interface {
	RaiseInterrupt() error
	LowerInterrupt()
}

// PicPorts are the I/O addresses of the interrupt controller registers.
type PicPorts struct {
	Mask   int `toml:"irq_mask"`
	Status int `toml:"irq_status"`
	Eoi    int `toml:"irq_eoi"`
}

// DefaultPicPorts are the conventional interrupt controller addresses.
var DefaultPicPorts = PicPorts{Mask: 0, Status: 1, Eoi: 2}

// Pic is the programmable interrupt controller.
//
// Peripherals assert lines either by level (Raise/Lower) or by edge
// (Trigger). The controller latches requests in IRQSTATUS until they are
// acknowledged through IRQEOI; a line still held at its level reappears
// immediately. The aggregate signal (IRQSTATUS & IRQMASK) != 0 is forwarded
// to the Cpu on each rising and falling edge.
type Pic struct {
	Verbose bool
	Sink    event.Sink
	Cpu     Interrupter
	Ports   PicPorts

	mask   uint16
	status uint16
	level  uint16
	signal bool

	io *Map
}

// NewPic creates an interrupt controller for the given ports.
func NewPic(ports PicPorts) *Pic {
	return &Pic{Ports: ports}
}

// Attach registers the controller registers in the I/O map.
func (pic *Pic) Attach(m *Map) (err error) {
	pic.Reset()

	table := []struct {
		name    string
		address int
		perm    Permission
	}{
		{"IRQMASK", pic.Ports.Mask, READ_WRITE},
		{"IRQSTATUS", pic.Ports.Status, READ_ONLY},
		{"IRQEOI", pic.Ports.Eoi, READ_WRITE},
	}

	for _, entry := range table {
		_, err = m.Add(entry.name, entry.address, entry.perm, 0, pic)
		if err != nil {
			return
		}
	}

	pic.io = m
	return
}

// Reset clears every latch. The Cpu is not notified.
func (pic *Pic) Reset() {
	pic.mask = 0
	pic.status = 0
	pic.level = 0
	pic.signal = false
}

// Mask returns the enabled lines.
func (pic *Pic) Mask() uint16 { return pic.mask }

// Status returns the pending lines.
func (pic *Pic) Status() uint16 { return pic.status }

// Level returns the lines held asserted by peripherals.
func (pic *Pic) Level() uint16 { return pic.level }

// Signal returns the aggregate interrupt signal.
func (pic *Pic) Signal() bool { return pic.signal }

func lineBit(line int) (bit uint16, err error) {
	if line < 0 || line >= LINE_COUNT {
		err = ErrLineInvalid
		return
	}
	bit = 1 << line
	return
}

// Raise asserts a level-triggered line.
func (pic *Pic) Raise(line int) (err error) {
	bit, err := lineBit(line)
	if err != nil {
		return
	}

	pic.level |= bit
	pic.status |= bit

	return pic.update("raise", line)
}

// Lower releases a level-triggered line. A pending request stays latched
// until acknowledged.
func (pic *Pic) Lower(line int) (err error) {
	bit, err := lineBit(line)
	if err != nil {
		return
	}

	pic.level &^= bit

	return pic.update("lower", line)
}

// Trigger latches an edge-triggered request on a line.
func (pic *Pic) Trigger(line int) (err error) {
	bit, err := lineBit(line)
	if err != nil {
		return
	}

	pic.status |= bit

	return pic.update("trigger", line)
}

// Notify handles writes to IRQMASK and IRQEOI.
func (pic *Pic) Notify(reg *Register, access event.Access) (err error) {
	if access != event.ACCESS_WRITE {
		return
	}

	switch reg.Address {
	case pic.Ports.Mask:
		pic.mask = reg.Value
		err = pic.update("mask", -1)
	case pic.Ports.Eoi:
		pic.status = (pic.status &^ reg.Value) | pic.level
		err = pic.update("eoi", -1)
	default:
		// Read-only registers only change through the controller.
		err = pic.update("sync", -1)
	}

	return
}

// update publishes the latches to the I/O map and forwards signal edges.
func (pic *Pic) update(op string, line int) (err error) {
	if pic.io != nil {
		for _, sync := range []struct {
			address int
			value   uint16
		}{
			{pic.Ports.Mask, pic.mask},
			{pic.Ports.Status, pic.status},
			{pic.Ports.Eoi, 0},
		} {
			err = pic.io.Set(sync.address, sync.value)
			if err != nil {
				return
			}
		}
	}

	signal := (pic.status & pic.mask) != 0

	event.Publish(pic.Sink, event.Irq{
		Op:     op,
		Line:   line,
		Mask:   pic.mask,
		Status: pic.status,
		Level:  pic.level,
		Signal: signal,
	})

	if pic.Verbose {
		logrus.WithFields(logrus.Fields{
			"op":     op,
			"line":   line,
			"mask":   pic.mask,
			"status": pic.status,
			"level":  pic.level,
		}).Debug("pic: update")
	}

	if signal == pic.signal {
		return
	}
	pic.signal = signal

	if pic.Cpu == nil {
		return
	}

	if signal {
		err = pic.Cpu.RaiseInterrupt()
	} else {
		pic.Cpu.LowerInterrupt()
	}

	return
}
