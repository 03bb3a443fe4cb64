// Package event carries machine activity (register, ALU, control unit, I/O
// and interrupt controller operations) to observers.
//
// Delivery is a direct, synchronous method call on the Sink. Observers run on
// the caller's stack, in the order the machine performs the operations.
package event

import (
	"fmt"
)

//go:generate go tool stringer -linecomment -type=Source

// Source identifies the component that published an event.
type Source int

const (
	SOURCE_REGISTER = Source(iota) // register
	SOURCE_ALU                     // alu
	SOURCE_CPU                     // cpu
	SOURCE_IO                      // io
	SOURCE_IRQ                     // irq
)

// Event is a single observation.
type Event interface {
	Source() Source
	String() string
}

// Sink receives events.
type Sink interface {
	Publish(ev Event)
}

// Publish delivers ev to sink, if there is one.
func Publish(sink Sink, ev Event) {
	if sink != nil {
		sink.Publish(ev)
	}
}

//go:generate go tool stringer -linecomment -type=Access

// Access is the kind of register or I/O access.
type Access int

const (
	ACCESS_READ   = Access(0) // read
	ACCESS_WRITE  = Access(1) // write
	ACCESS_UPDATE = Access(2) // update
)

// Register is a register bank access.
type Register struct {
	Index  int
	Name   string
	Value  uint16
	Access Access
}

func (ev Register) Source() Source { return SOURCE_REGISTER }

func (ev Register) String() string {
	return fmt.Sprintf("%v %v 0x%04x", ev.Access, ev.Name, ev.Value)
}

// Alu is a completed ALU operation.
type Alu struct {
	Op     string
	Width  int
	A, B   uint16
	Result uint16
	Carry  bool
	Zero   bool
}

func (ev Alu) Source() Source { return SOURCE_ALU }

func (ev Alu) String() string {
	return fmt.Sprintf("%v%d 0x%04x 0x%04x = 0x%04x carry=%v zero=%v",
		ev.Op, ev.Width, ev.A, ev.B, ev.Result, ev.Carry, ev.Zero)
}

// Cpu is a control unit operation: an executed instruction, an interrupt
// entry, an exception dispatch, a halt or a fault.
type Cpu struct {
	Op   string
	IP   uint16
	SP   uint16
	SR   uint16
	Text string
}

func (ev Cpu) Source() Source { return SOURCE_CPU }

func (ev Cpu) String() string {
	return fmt.Sprintf("%v ip=0x%04x sp=0x%04x sr=0x%04x %v", ev.Op, ev.IP, ev.SP, ev.SR, ev.Text)
}

// Io is an I/O register access.
type Io struct {
	Name    string
	Address int
	Value   uint16
	Access  Access
}

func (ev Io) Source() Source { return SOURCE_IO }

func (ev Io) String() string {
	return fmt.Sprintf("%v %v@%d 0x%04x", ev.Access, ev.Name, ev.Address, ev.Value)
}

// Irq is an interrupt controller operation.
type Irq struct {
	Op     string
	Line   int
	Mask   uint16
	Status uint16
	Level  uint16
	Signal bool
}

func (ev Irq) Source() Source { return SOURCE_IRQ }

func (ev Irq) String() string {
	return fmt.Sprintf("%v line=%d mask=0x%04x status=0x%04x level=0x%04x signal=%v",
		ev.Op, ev.Line, ev.Mask, ev.Status, ev.Level, ev.Signal)
}
