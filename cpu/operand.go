package cpu

import (
	"fmt"
	"strconv"
	"strings"
)

// operandKind is the syntactic form of an assembler operand.
type operandKind int

const (
	kindRegister     operandKind = iota // A, AL, SP, ...
	kindNumber                          // 42, 0x2a, 'x'
	kindLabel                           // label
	kindAddress                         // [0x100]
	kindAddressLabel                    // [label]
	kindRegAddress                      // [A+3]
	kindString                          // "text"
)

type operand struct {
	kind   operandKind
	text   string
	reg    RegisterIndex
	value  int
	offset int
	label  string
	data   []byte
}

// class returns the overload resolution class.
func (op operand) class() OperandClass {
	switch op.kind {
	case kindRegister:
		return CLASS_REGISTER
	case kindAddress, kindAddressLabel:
		return CLASS_ADDRESS
	case kindRegAddress:
		return CLASS_REGADDRESS
	}
	return CLASS_IMMEDIATE
}

// encode validates the operand against its declared type and encodes it.
// A non-empty label is a word to be patched.
func (op operand) encode(ot OperandType) (enc []byte, label string, err error) {
	switch ot {
	case OPERAND_REGISTER_16:
		if op.kind != kindRegister || !op.reg.Is16() {
			err = fmt.Errorf("%w: %v", ErrRegisterInvalid, op.text)
			return
		}
		enc = []byte{byte(op.reg)}
	case OPERAND_REGISTER_8:
		if op.kind != kindRegister || !op.reg.Is8() {
			err = fmt.Errorf("%w: %v", ErrRegisterInvalid, op.text)
			return
		}
		enc = []byte{byte(op.reg)}
	case OPERAND_BYTE:
		if op.kind != kindNumber {
			err = fmt.Errorf("%w: %v", ErrOperandMismatch, op.text)
			return
		}
		if op.value < 0 || op.value > 0xff {
			err = fmt.Errorf("%w: %v", ErrOperandRange, op.text)
			return
		}
		enc = []byte{byte(op.value)}
	case OPERAND_WORD, OPERAND_ADDRESS:
		switch op.kind {
		case kindLabel, kindAddressLabel:
			label = op.label
			enc = []byte{0, 0}
			return
		case kindNumber, kindAddress:
		default:
			err = fmt.Errorf("%w: %v", ErrOperandMismatch, op.text)
			return
		}
		if op.value < 0 || op.value > 0xffff {
			err = fmt.Errorf("%w: %v", ErrOperandRange, op.text)
			return
		}
		enc = []byte{byte(op.value >> 8), byte(op.value)}
	case OPERAND_REGADDRESS:
		if op.kind != kindRegAddress {
			err = fmt.Errorf("%w: %v", ErrOperandMismatch, op.text)
			return
		}
		enc = []byte{byte(int8(op.offset)), byte(op.reg)}
	default:
		err = ErrOperandMismatch
	}
	return
}

// equate replaces a word that names an equate with its value.
func (asm *Assembler) equate(word string) string {
	if value, ok := asm.Equate[word]; ok {
		return value
	}
	return word
}

// parseOperand classifies one operand.
func (asm *Assembler) parseOperand(text string) (op operand, err error) {
	op.text = text
	word := asm.equate(text)

	switch {
	case strings.HasPrefix(word, `"`):
		op.kind = kindString
		op.data, err = unquote(word, '"')
		return
	case strings.HasPrefix(word, "["):
		if !strings.HasSuffix(word, "]") {
			err = fmt.Errorf("%w: %v", ErrOperandSyntax, text)
			return
		}
		return asm.parseBracket(text, strings.Join(strings.Fields(word[1:len(word)-1]), ""))
	}

	if reg, ok := RegisterByName(word); ok {
		if !reg.Is16() && !reg.Is8() {
			err = fmt.Errorf("%w: %v", ErrRegisterInvalid, text)
			return
		}
		op.kind = kindRegister
		op.reg = reg
		return
	}

	value, err := asm.parseValue(word)
	if err == nil {
		op.kind = kindNumber
		op.value = value
		return
	}

	if reIdentifier.MatchString(word) {
		err = nil
		op.kind = kindLabel
		op.label = strings.ToLower(word)
		return
	}

	return
}

// parseBracket classifies the inside of a [...] operand.
func (asm *Assembler) parseBracket(text string, inner string) (op operand, err error) {
	op.text = text
	inner = asm.equate(inner)

	if len(inner) == 0 {
		err = fmt.Errorf("%w: %v", ErrOperandSyntax, text)
		return
	}

	base, offset := inner, ""
	if n := strings.IndexAny(inner[1:], "+-"); n >= 0 {
		base, offset = inner[:n+1], inner[n+1:]
	}

	if reg, ok := RegisterByName(base); ok {
		if !reg.Is16() {
			err = fmt.Errorf("%w: %v", ErrRegisterInvalid, text)
			return
		}
		op.kind = kindRegAddress
		op.reg = reg
		if len(offset) == 0 {
			return
		}
		sign := 1
		if offset[0] == '-' {
			sign = -1
		}
		var value int
		value, err = asm.parseValue(asm.equate(offset[1:]))
		if err != nil {
			return
		}
		op.offset = sign * value
		if op.offset < -128 || op.offset > 127 {
			err = fmt.Errorf("%w: %v", ErrOffsetRange, text)
		}
		return
	}

	value, err := asm.parseValue(inner)
	if err == nil {
		op.kind = kindAddress
		op.value = value
		return
	}

	if reIdentifier.MatchString(inner) {
		err = nil
		op.kind = kindAddressLabel
		op.label = strings.ToLower(inner)
	}
	return
}

// parseValue parses a numeric or character literal.
func (asm *Assembler) parseValue(word string) (value int, err error) {
	if strings.HasPrefix(word, "'") {
		var data []byte
		data, err = unquote(word, '\'')
		if err != nil {
			return
		}
		if len(data) != 1 {
			err = ErrParseValue(word)
			return
		}
		value = int(data[0])
		return
	}

	return parseNumber(word)
}

// parseNumber parses 0x hex, 0o octal, 'b' suffixed binary, 'd' suffixed
// decimal and plain decimal numbers.
func parseNumber(word string) (value int, err error) {
	text := strings.ToLower(word)
	negative := strings.HasPrefix(text, "-")
	if negative {
		text = text[1:]
	}

	base := 10
	switch {
	case strings.HasPrefix(text, "0x"):
		base, text = 16, text[2:]
	case strings.HasPrefix(text, "0o"):
		base, text = 8, text[2:]
	case len(text) > 1 && strings.HasSuffix(text, "b") && strings.Trim(text[:len(text)-1], "01") == "":
		base, text = 2, text[:len(text)-1]
	case len(text) > 1 && strings.HasSuffix(text, "d"):
		text = text[:len(text)-1]
	}

	if len(text) == 0 || strings.ContainsAny(text, "+-") {
		err = ErrParseNumber(word)
		return
	}

	v64, perr := strconv.ParseInt(text, base, 32)
	if perr != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	if negative {
		value = -value
	}
	return
}

// unquote decodes a quoted string or character with backslash escapes.
func unquote(word string, quote byte) (data []byte, err error) {
	if len(word) < 2 || word[0] != quote || word[len(word)-1] != quote || escaped(word, len(word)-1) {
		err = ErrStringUnterminated
		return
	}

	body := word[1 : len(word)-1]
	for n := 0; n < len(body); n++ {
		c := body[n]
		if c != '\\' {
			data = append(data, c)
			continue
		}
		n++
		if n >= len(body) {
			err = ErrStringUnterminated
			return
		}
		switch body[n] {
		case 'n':
			c = '\n'
		case 'r':
			c = '\r'
		case 't':
			c = '\t'
		case '0':
			c = 0
		case 'e':
			c = 033
		case '\\', '\'', '"':
			c = body[n]
		default:
			err = ErrParseValue(word)
			return
		}
		data = append(data, c)
	}
	return
}
