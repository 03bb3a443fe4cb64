package io

import (
	"strings"

	"github.com/ezrec/sim16/memory"
)

// DisplayLayout places the character cells of the display in main memory.
type DisplayLayout struct {
	Base   int `toml:"display_base"`
	Length int `toml:"display_length"`
}

// DefaultDisplayLayout is the 32 character display at the top of a 1K
// memory.
var DefaultDisplayLayout = DisplayLayout{Base: 0x02E0, Length: 32}

// DISPLAY_REGION is the memory region id of the display.
const DISPLAY_REGION = "display"

// Display is a memory-mapped character display. Programs write ASCII
// codes into its region; a zero cell shows as a blank.
type Display struct {
	Layout DisplayLayout

	mem *memory.Memory
}

// NewDisplay creates a display with the given layout.
func NewDisplay(layout DisplayLayout) *Display {
	return &Display{Layout: layout}
}

// Attach claims the display region of mem.
func (dp *Display) Attach(mem *memory.Memory) (err error) {
	if dp.Layout.Length <= 0 {
		err = ErrDisplayLayout
		return
	}

	_, err = mem.AddRegion(DISPLAY_REGION, dp.Layout.Base, dp.Layout.Base+dp.Layout.Length-1, memory.READ_WRITE, dp)
	if err != nil {
		return
	}

	dp.mem = mem
	return
}

// Cells returns the raw display bytes.
func (dp *Display) Cells() []byte {
	if dp.mem == nil {
		return make([]byte, max(dp.Layout.Length, 0))
	}
	return dp.mem.Bytes(dp.Layout.Base, dp.Layout.Length)
}

// Text renders the display as a string of printable characters.
func (dp *Display) Text() string {
	var sb strings.Builder
	for _, cell := range dp.Cells() {
		if cell < ' ' || cell > '~' {
			cell = ' '
		}
		sb.WriteByte(cell)
	}
	return sb.String()
}

// Clear blanks every cell.
func (dp *Display) Clear() (err error) {
	if dp.mem == nil {
		err = ErrNotAttached
		return
	}

	for n := range dp.Layout.Length {
		err = dp.mem.StoreByte(dp.Layout.Base+n, 0, dp)
		if err != nil {
			return
		}
	}
	return
}
