// Package image reads and writes assembled programs as binary files.
//
// An image is a fixed header followed by a payload holding the code, the
// address to source line map and the labels. The payload may be snappy
// compressed.
package image

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/cpu"
	"github.com/ezrec/sim16/translate"
)

var f = translate.From

var (
	ErrMagic   = errors.New(f("image magic invalid"))
	ErrVersion = errors.New(f("image version unsupported"))
	ErrFlags   = errors.New(f("image flags unsupported"))
	ErrCorrupt = errors.New(f("image corrupt"))
)

const (
	MAGIC   = "S16I"
	VERSION = 1
)

// Flags of an image.
type Flags uint16

const (
	FLAG_SNAPPY = Flags(1 << 0) // Payload is snappy compressed.

	flagsKnown = FLAG_SNAPPY
)

// Header of an image file.
type Header struct {
	Magic   string `struc:"[4]byte"`
	Version uint16
	Flags   Flags `struc:"uint16"`
}

type lineRecord struct {
	Ip     uint16
	LineNo uint32
}

type labelRecord struct {
	NameSize int `struc:"uint8,sizeof=Name"`
	Name     string
	Ip       uint16
}

type payload struct {
	CodeSize   int `struc:"uint32,sizeof=Code"`
	Code       []byte
	LineCount  int `struc:"uint32,sizeof=Lines"`
	Lines      []lineRecord
	LabelCount int `struc:"uint32,sizeof=Labels"`
	Labels     []labelRecord
}

// Encode writes prog as an image.
func Encode(w io.Writer, prog *cpu.Program, flags Flags) (err error) {
	if flags&^flagsKnown != 0 {
		err = fmt.Errorf("%w: 0x%04x", ErrFlags, uint16(flags))
		return
	}

	header := &Header{
		Magic:   MAGIC,
		Version: VERSION,
		Flags:   flags,
	}
	err = struc.Pack(w, header)
	if err != nil {
		return
	}

	body := &payload{Code: prog.Code}
	for ip, lineno := range prog.Instructions() {
		body.Lines = append(body.Lines, lineRecord{Ip: uint16(ip), LineNo: uint32(lineno)})
	}
	for _, name := range slices.Sorted(maps.Keys(prog.Labels)) {
		if len(name) > 0xff {
			err = fmt.Errorf("%w: label %v too long", ErrCorrupt, name)
			return
		}
		body.Labels = append(body.Labels, labelRecord{Name: name, Ip: uint16(prog.Labels[name])})
	}

	if flags&FLAG_SNAPPY == 0 {
		err = struc.Pack(w, body)
		return
	}

	zw := snappy.NewBufferedWriter(w)
	err = struc.Pack(zw, body)
	if err != nil {
		zw.Close()
		return
	}
	err = zw.Close()
	return
}

// Decode reads an image. The listing of the returned program is rebuilt
// by disassembling the code at each recorded instruction address.
func Decode(r io.Reader) (prog *cpu.Program, header Header, err error) {
	err = struc.Unpack(r, &header)
	if err != nil {
		err = errors.Join(ErrCorrupt, err)
		return
	}

	switch {
	case header.Magic != MAGIC:
		err = fmt.Errorf("%w: %q", ErrMagic, header.Magic)
		return
	case header.Version != VERSION:
		err = fmt.Errorf("%w: %d", ErrVersion, header.Version)
		return
	case header.Flags&^flagsKnown != 0:
		err = fmt.Errorf("%w: 0x%04x", ErrFlags, uint16(header.Flags))
		return
	}

	if header.Flags&FLAG_SNAPPY != 0 {
		r = snappy.NewReader(r)
	}

	var body payload
	err = struc.Unpack(r, &body)
	if err != nil {
		err = errors.Join(ErrCorrupt, err)
		return
	}

	prog = &cpu.Program{
		Code:   body.Code,
		Lines:  make(map[int]int, len(body.Lines)),
		Labels: make(map[string]int, len(body.Labels)),
	}

	for _, rec := range body.Lines {
		ip := int(rec.Ip)
		var text string
		var size int
		text, size, err = cpu.Disassemble(codeReader(body.Code), ip)
		if err != nil {
			err = fmt.Errorf("%w: ip 0x%04x: %w", ErrCorrupt, ip, err)
			return
		}
		prog.Lines[ip] = int(rec.LineNo)
		prog.Opcodes = append(prog.Opcodes, cpu.Opcode{
			LineNo: int(rec.LineNo),
			Ip:     ip,
			Words:  listingWords(text),
			Bytes:  body.Code[ip : ip+size],
		})
	}

	for _, rec := range body.Labels {
		prog.Labels[rec.Name] = int(rec.Ip)
	}

	return
}

// listingWords splits disassembled text into mnemonic and operands.
func listingWords(text string) (words []string) {
	mnemonic, operands, ok := strings.Cut(text, " ")
	words = []string{mnemonic}
	if ok {
		words = append(words, strings.Split(operands, ", ")...)
	}
	return
}

// codeReader reads code bytes for the disassembler.
type codeReader []byte

func (code codeReader) LoadByte(addr int) (value byte, err error) {
	if addr < 0 || addr >= len(code) {
		err = io.ErrUnexpectedEOF
		return
	}
	value = code[addr]
	return
}

// WriteFile encodes prog to the named file.
func WriteFile(path string, prog *cpu.Program, flags Flags) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return
	}

	err = Encode(file, prog, flags)
	if err != nil {
		file.Close()
		return
	}

	err = file.Close()
	if err == nil {
		logrus.WithFields(logrus.Fields{
			"path":  path,
			"bytes": len(prog.Code),
			"flags": uint16(flags),
		}).Debug("image: written")
	}
	return
}

// ReadFile decodes the named image file.
func ReadFile(path string) (prog *cpu.Program, err error) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	prog, _, err = Decode(file)
	return
}
