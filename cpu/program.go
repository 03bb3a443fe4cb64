package cpu

import (
	"fmt"
	"iter"
	"strings"

	"github.com/ezrec/sim16/internal"
)

// Opcode is a line of assembled code with its source location.
type Opcode struct {
	LineNo int      // 0-based source line.
	Ip     int      // Address of the first byte.
	Words  []string // Mnemonic and operands, as written.
	Bytes  []byte   // Encoded bytes.
	Data   bool     // Set for DB data.
}

// Program is the output of the assembler.
type Program struct {
	Code    []byte         // Image loaded at address 0.
	Lines   map[int]int    // Instruction address to source line.
	Labels  map[string]int // Label to code offset.
	Opcodes []Opcode       // Listing, in address order.
}

// Debug locates an address in the listing.
type Debug struct {
	*Opcode
	Index int // Offset of the address in the opcode bytes.
}

// Debug returns the listing entry containing ip, if any.
func (prog *Program) Debug(ip uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(ip) >= op.Ip && int(ip) < op.Ip+len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(ip) - op.Ip,
			}
			break
		}
	}

	return
}

// LineNo returns the source line of the instruction starting at ip.
func (prog *Program) LineNo(ip uint16) (lineno int, ok bool) {
	lineno, ok = prog.Lines[int(ip)]
	return
}

// Instructions iterates over instruction addresses and their source lines,
// in address order.
func (prog *Program) Instructions() iter.Seq2[int, int] {
	return internal.SortedSeq2(prog.Lines)
}

// Listing returns the assembled listing as text.
func (prog *Program) Listing() string {
	var sb strings.Builder
	for _, op := range prog.Opcodes {
		var hex []string
		for _, b := range op.Bytes {
			hex = append(hex, fmt.Sprintf("%02x", b))
		}
		text := op.Words[0]
		if len(op.Words) > 1 {
			text += " " + strings.Join(op.Words[1:], ", ")
		}
		fmt.Fprintf(&sb, "%04x  %-16s %4d  %v\n", op.Ip, strings.Join(hex, " "), op.LineNo, text)
	}
	return sb.String()
}
