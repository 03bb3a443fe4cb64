package io

import (
	"fmt"
	"iter"
	"maps"
)

func portDefines(defs map[string]int) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for name, value := range maps.All(defs) {
			if !yield(name, fmt.Sprintf("%d", value)) {
				return
			}
		}
	}
}

// Defines returns an iter of assembler defines for the controller.
func (pic *Pic) Defines() iter.Seq2[string, string] {
	return portDefines(map[string]int{
		"IO_IRQMASK":   pic.Ports.Mask,
		"IO_IRQSTATUS": pic.Ports.Status,
		"IO_IRQEOI":    pic.Ports.Eoi,
	})
}

// Defines returns an iter of assembler defines for the timer.
func (tm *Timer) Defines() iter.Seq2[string, string] {
	return portDefines(map[string]int{
		"IO_TIMER_PRELOAD": tm.Ports.Preload,
		"IO_TIMER_COUNTER": tm.Ports.Counter,
		"IRQ_TIMER":        tm.Line,
	})
}

// Defines returns an iter of assembler defines for the keypad.
func (kp *Keypad) Defines() iter.Seq2[string, string] {
	return portDefines(map[string]int{
		"IO_KEYPAD_STATUS": kp.Ports.Status,
		"IO_KEYPAD_DATA":   kp.Ports.Data,
		"IRQ_KEYPAD":       kp.Line,
		"KEYPAD_READY":     KEYPAD_READY,
	})
}

// Defines returns an iter of assembler defines for the tape.
func (tc *Tape) Defines() iter.Seq2[string, string] {
	return portDefines(map[string]int{
		"IO_TAPE_STATUS": tc.Ports.Status,
		"IO_TAPE_DATA":   tc.Ports.Data,
		"TAPE_READY":     TAPE_READY,
		"TAPE_EOF":       TAPE_EOF,
	})
}

// Defines returns an iter of assembler defines for the display.
func (dp *Display) Defines() iter.Seq2[string, string] {
	return portDefines(map[string]int{
		"DISPLAY_BASE":   dp.Layout.Base,
		"DISPLAY_LENGTH": dp.Layout.Length,
	})
}
