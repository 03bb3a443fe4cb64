// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/sim16/translate"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":               "0",
	"VECTOR_INTERRUPT":     strconv.Itoa(int(DefaultVectors.Interrupt)),
	"VECTOR_SYSCALL":       strconv.Itoa(int(DefaultVectors.Syscall)),
	"VECTOR_EXCEPTION":     strconv.Itoa(int(DefaultVectors.Exception)),
	"USER_STACK_TOP":       strconv.Itoa(USER_STACK_TOP),
	"SUPERVISOR_STACK_TOP": strconv.Itoa(SUPERVISOR_STACK_TOP),
}

// Assembler is a single pass assembler for the sim16 machine. Forward
// label references are recorded and patched once the whole source has
// been read.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string
	Label     map[string]int    // Map of labels (lower case) to code offsets.
	Equate    map[string]string // Map of equates.

	code    []byte
	lines   map[int]int
	opcodes []Opcode
	fixups  []fixup
}

// fixup is a WORD or ADDRESS operand waiting for a label.
type fixup struct {
	pos    int
	label  string
	lineNo int
	line   string
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

var (
	reLabel      = regexp.MustCompile(`^([A-Za-z_.][A-Za-z0-9_.]*)\s*:`)
	reIdentifier = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
	reParen      = regexp.MustCompile(`\$\([^\$]*\)`)
)

// Parse assembles an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	lineno := -1

	defer func() {
		if err != nil {
			var syn *ErrSyntax
			if !errors.As(err, &syn) {
				err = &ErrSyntax{LineNo: max(lineno, 0), Line: line, Err: err}
			}
		}
	}()

	asm.Label = make(map[string]int)
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)
	asm.code = nil
	asm.lines = make(map[int]int)
	asm.opcodes = nil
	asm.fixups = nil

	for scanner.Scan() {
		lineno++
		text := scanner.Text()

		if asm.Verbose {
			logrus.WithField("line", lineno).Debug(text)
		}

		line = text

		var stripped string
		stripped, err = stripComment(text)
		if err != nil {
			return
		}

		err = asm.parseLine(stripped, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Final linking of labels.
	for _, fx := range asm.fixups {
		addr, ok := asm.Label[fx.label]
		if !ok {
			err = &ErrSyntax{LineNo: fx.lineNo, Line: fx.line, Err: ErrLabelMissing(fx.label)}
			return
		}
		asm.code[fx.pos] = byte(addr >> 8)
		asm.code[fx.pos+1] = byte(addr)
	}

	for n := range asm.opcodes {
		op := &asm.opcodes[n]
		op.Bytes = asm.code[op.Ip : op.Ip+len(op.Bytes)]
	}

	prog = &Program{
		Code:    slices.Clone(asm.code),
		Lines:   maps.Clone(asm.lines),
		Labels:  maps.Clone(asm.Label),
		Opcodes: slices.Clone(asm.opcodes),
	}

	return
}

// stripComment removes a ';' comment outside of quotes.
func stripComment(text string) (line string, err error) {
	var quote rune
	for n, c := range text {
		switch {
		case quote != 0 && c == quote && !escaped(text, n):
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case quote == 0 && c == ';':
			line = strings.TrimSpace(text[:n])
			return
		}
	}
	if quote != 0 {
		err = ErrStringUnterminated
		return
	}
	line = strings.TrimSpace(text)
	return
}

// expandParens replaces each $(...) outside of quotes with its value.
// Quotes inside an expression belong to the expression.
func (asm *Assembler) expandParens(text string) (line string, err error) {
	var sb strings.Builder
	var quote byte
	for n := 0; n < len(text); n++ {
		c := text[n]
		switch {
		case quote != 0:
			if c == quote && !escaped(text, n) {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '$':
			loc := reParen.FindStringIndex(text[n:])
			if loc == nil || loc[0] != 0 {
				break
			}
			expr := text[n+2 : n+loc[1]-1]
			var value int64
			value, err = asm.parenEval(expr)
			if err != nil {
				return
			}
			sb.WriteString(strconv.FormatInt(value, 10))
			n += loc[1] - 1
			continue
		}
		sb.WriteByte(c)
	}

	line = sb.String()
	return
}

// escaped returns true if the character at n follows an odd number of
// backslashes.
func escaped(text string, n int) bool {
	count := 0
	for n--; n >= 0 && text[n] == '\\'; n-- {
		count++
	}
	return count%2 == 1
}

// splitOperands splits on commas outside of quotes and brackets.
func splitOperands(text string) (ops []string, err error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return
	}

	var quote rune
	depth := 0
	start := 0
	for n, c := range text {
		switch {
		case quote != 0:
			if c == quote && !escaped(text, n) {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == ',' && depth == 0:
			ops = append(ops, strings.TrimSpace(text[start:n]))
			start = n + 1
		}
	}
	if quote != 0 {
		err = ErrStringUnterminated
		return
	}
	if depth != 0 {
		err = ErrOperandSyntax
		return
	}
	ops = append(ops, strings.TrimSpace(text[start:]))

	for _, op := range ops {
		if len(op) == 0 {
			err = ErrOperandSyntax
			return
		}
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int
		v, err = parseNumber(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseLine parses a single line of source.
func (asm *Assembler) parseLine(line string, lineno int) (err error) {
	asm.Equate["LINENO"] = strconv.Itoa(lineno)

	// Do $() evaluations
	line, err = asm.expandParens(line)
	if err != nil {
		return
	}

	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.EqualFold(words[0], ".equ") {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		if _, ok := asm.Equate[words[1]]; ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		return
	}

	for {
		match := reLabel.FindStringSubmatch(line)
		if match == nil {
			break
		}
		err = asm.defineLabel(match[1])
		if err != nil {
			return
		}
		line = strings.TrimSpace(line[len(match[0]):])
	}

	if len(line) == 0 {
		return
	}

	mnemonic, rest := line, ""
	if n := strings.IndexFunc(line, unicode.IsSpace); n >= 0 {
		mnemonic, rest = line[:n], line[n+1:]
	}

	texts, err := splitOperands(rest)
	if err != nil {
		return
	}

	words = append([]string{mnemonic}, texts...)

	var ops []operand
	for _, text := range texts {
		var op operand
		op, err = asm.parseOperand(text)
		if err != nil {
			return
		}
		ops = append(ops, op)
	}

	if strings.EqualFold(mnemonic, "DB") {
		return asm.emitData(ops, words, lineno)
	}

	return asm.emitInstruction(mnemonic, ops, words, lineno, strings.TrimSpace(line))
}

// defineLabel records a label at the current code offset.
func (asm *Assembler) defineLabel(name string) (err error) {
	if _, ok := RegisterByName(name); ok || isStatusName(name) {
		err = fmt.Errorf("%w: %v", ErrLabelReserved, name)
		return
	}

	key := strings.ToLower(name)
	if _, ok := asm.Label[key]; ok {
		err = fmt.Errorf("%w: %v", ErrLabelDuplicate, name)
		return
	}

	asm.Label[key] = len(asm.code)
	return
}

// emitData appends DB bytes.
func (asm *Assembler) emitData(ops []operand, words []string, lineno int) (err error) {
	if len(ops) == 0 {
		err = ErrDataInvalid
		return
	}

	start := len(asm.code)
	for _, op := range ops {
		switch op.kind {
		case kindString:
			asm.code = append(asm.code, op.data...)
		case kindNumber:
			if op.value < 0 || op.value > 0xff {
				err = fmt.Errorf("%w: %v", ErrOperandRange, op.text)
				return
			}
			asm.code = append(asm.code, byte(op.value))
		default:
			err = fmt.Errorf("%w: %v", ErrDataInvalid, op.text)
			return
		}
	}

	asm.opcodes = append(asm.opcodes, Opcode{
		LineNo: lineno,
		Ip:     start,
		Words:  words,
		Bytes:  asm.code[start:],
		Data:   true,
	})
	return
}

// emitInstruction encodes an instruction.
func (asm *Assembler) emitInstruction(mnemonic string, ops []operand, words []string, lineno int, line string) (err error) {
	if !Instructions.IsMnemonic(mnemonic) {
		err = fmt.Errorf("%w: %v", ErrMnemonicUnknown, mnemonic)
		return
	}

	var classes []OperandClass
	for _, op := range ops {
		if op.kind == kindString {
			err = fmt.Errorf("%w: %v", ErrOperandMismatch, op.text)
			return
		}
		classes = append(classes, op.class())
	}

	ins, ok := Instructions.Find(mnemonic, classes)
	if !ok {
		err = fmt.Errorf("%w: %v", ErrOperandMismatch, strings.Join(words, " "))
		return
	}

	start := len(asm.code)
	code := []byte{ins.Opcode}
	var fixups []fixup

	for n, ot := range ins.Operands {
		var enc []byte
		var label string
		enc, label, err = ops[n].encode(ot)
		if err != nil {
			return
		}
		if len(label) != 0 {
			fixups = append(fixups, fixup{pos: start + len(code), label: label, lineNo: lineno, line: line})
		}
		code = append(code, enc...)
	}

	if asm.Verbose {
		logrus.WithFields(logrus.Fields{
			"ip":       translate.Hex(uint16(start)),
			"mnemonic": ins.Mnemonic,
			"bytes":    fmt.Sprintf("% x", code),
		}).Debug("asm: emit")
	}

	asm.code = append(asm.code, code...)
	asm.fixups = append(asm.fixups, fixups...)
	asm.lines[start] = lineno
	asm.opcodes = append(asm.opcodes, Opcode{
		LineNo: lineno,
		Ip:     start,
		Words:  words,
		Bytes:  code,
	})
	return
}
