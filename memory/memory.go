// Package memory implements the flat, byte-addressable main memory with
// permission-checked regions owned by devices.
//
// Words are big-endian: the high byte is stored at the lower address.
package memory

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/sim16/translate"
)

var f = translate.From

var (
	ErrOutOfBounds   = errors.New(f("address out of bounds"))
	ErrReadOnly      = errors.New(f("read-only violation"))
	ErrRegionInvalid = errors.New(f("region invalid"))
	ErrRegionOverlap = errors.New(f("region overlaps"))
	ErrRegionMissing = errors.New(f("region missing"))
	ErrRegionExists  = errors.New(f("region already registered"))
	ErrImageTooLarge = errors.New(f("image exceeds memory"))
)

// DEFAULT_SIZE is the default memory size in bytes.
const DEFAULT_SIZE = 1024

// AccessError reports a failed memory access and the offending address.
type AccessError struct {
	Addr int
	Err  error
}

func (err *AccessError) Error() string {
	return f("memory 0x%04x: %v", err.Addr, err.Err)
}

func (err *AccessError) Unwrap() error {
	return err.Err
}

//go:generate go tool stringer -linecomment -type=Permission

// Permission of a cell or region.
type Permission int

const (
	READ_WRITE = Permission(0) // rw
	READ_ONLY  = Permission(1) // ro
)

// Actor identifies who performs a store. The zero Actor is the CPU.
type Actor any

// Region is a contiguous span [Start, End] with a permission and an owner.
type Region struct {
	Id         string
	Start      int
	End        int
	Permission Permission
	Owner      Actor
}

// Contains returns true if addr is within the region.
func (rg *Region) Contains(addr int) bool {
	return addr >= rg.Start && addr <= rg.End
}

func (rg *Region) String() string {
	return fmt.Sprintf("%v 0x%04x-0x%04x %v", rg.Id, rg.Start, rg.End, rg.Permission)
}

// Memory is the machine main memory.
type Memory struct {
	Verbose bool

	data    []byte
	perm    []Permission
	region  []*Region // Owning region of each cell, if any.
	regions []*Region // Registered regions, in registration order.
}

// NewMemory creates a zero-filled memory of size bytes.
func NewMemory(size int) (mem *Memory) {
	if size <= 0 {
		size = DEFAULT_SIZE
	}

	mem = &Memory{
		data:   make([]byte, size),
		perm:   make([]Permission, size),
		region: make([]*Region, size),
	}

	return
}

// Size of the memory in bytes.
func (mem *Memory) Size() int {
	return len(mem.data)
}

// Reset zero-fills the memory and drops every region.
func (mem *Memory) Reset() {
	clear(mem.data)
	clear(mem.perm)
	clear(mem.region)
	mem.regions = nil
}

func (mem *Memory) check(addr int) (err error) {
	if addr < 0 || addr >= len(mem.data) {
		err = &AccessError{Addr: addr, Err: ErrOutOfBounds}
	}
	return
}

// LoadByte reads the byte at addr.
func (mem *Memory) LoadByte(addr int) (value byte, err error) {
	err = mem.check(addr)
	if err != nil {
		return
	}

	value = mem.data[addr]
	return
}

// StoreByte writes the byte at addr on behalf of actor.
// Read-only cells may only be written by the owner of their region.
func (mem *Memory) StoreByte(addr int, value byte, actor Actor) (err error) {
	err = mem.check(addr)
	if err != nil {
		return
	}

	if mem.perm[addr] == READ_ONLY {
		rg := mem.region[addr]
		if actor == nil || rg == nil || rg.Owner != actor {
			err = &AccessError{Addr: addr, Err: ErrReadOnly}
			return
		}
	}

	mem.data[addr] = value
	return
}

// LoadWord reads the big-endian word at addr.
func (mem *Memory) LoadWord(addr int) (value uint16, err error) {
	hi, err := mem.LoadByte(addr)
	if err != nil {
		return
	}
	lo, err := mem.LoadByte(addr + 1)
	if err != nil {
		return
	}

	value = (uint16(hi) << 8) | uint16(lo)
	return
}

// StoreWord writes the big-endian word at addr on behalf of actor.
// Both bytes are checked before either is written.
func (mem *Memory) StoreWord(addr int, value uint16, actor Actor) (err error) {
	for _, at := range []int{addr, addr + 1} {
		err = mem.check(at)
		if err != nil {
			return
		}
		if mem.perm[at] == READ_ONLY {
			rg := mem.region[at]
			if actor == nil || rg == nil || rg.Owner != actor {
				err = &AccessError{Addr: at, Err: ErrReadOnly}
				return
			}
		}
	}

	mem.data[addr] = byte(value >> 8)
	mem.data[addr+1] = byte(value)
	return
}

// StoreBytes bulk-loads values starting at start, bypassing permissions.
func (mem *Memory) StoreBytes(start int, values []byte) (err error) {
	if start < 0 || start+len(values) > len(mem.data) {
		err = &AccessError{Addr: start + len(values) - 1, Err: ErrImageTooLarge}
		return
	}

	copy(mem.data[start:], values)
	return
}

// Bytes returns a copy of length bytes at start, clamped to the memory.
func (mem *Memory) Bytes(start, length int) (values []byte) {
	start = max(start, 0)
	end := min(start+max(length, 0), len(mem.data))
	if start >= end {
		return
	}

	values = make([]byte, end-start)
	copy(values, mem.data[start:end])
	return
}

// AddRegion registers a region [start, end] with the given permission.
func (mem *Memory) AddRegion(id string, start, end int, perm Permission, owner Actor) (rg *Region, err error) {
	if start < 0 || end >= len(mem.data) || start > end {
		err = ErrRegionInvalid
		return
	}

	for _, other := range mem.regions {
		if other.Id == id {
			err = ErrRegionExists
			return
		}
		if start <= other.End && other.Start <= end {
			err = errors.Join(ErrRegionOverlap, fmt.Errorf("%v", other))
			return
		}
	}

	rg = &Region{Id: id, Start: start, End: end, Permission: perm, Owner: owner}
	mem.regions = append(mem.regions, rg)

	for addr := start; addr <= end; addr++ {
		mem.region[addr] = rg
		mem.perm[addr] = perm
	}

	if mem.Verbose {
		logrus.WithField("region", rg.String()).Debug("memory: add region")
	}

	return
}

// RemoveRegion drops the region, clearing the ownership of its cells.
// Cell contents are preserved.
func (mem *Memory) RemoveRegion(id string) (err error) {
	for n, rg := range mem.regions {
		if rg.Id != id {
			continue
		}
		for addr := rg.Start; addr <= rg.End; addr++ {
			if mem.region[addr] == rg {
				mem.region[addr] = nil
				mem.perm[addr] = READ_WRITE
			}
		}
		mem.regions = append(mem.regions[:n], mem.regions[n+1:]...)

		if mem.Verbose {
			logrus.WithField("region", rg.String()).Debug("memory: remove region")
		}
		return
	}

	err = ErrRegionMissing
	return
}

// Region returns the region owning addr, if any.
func (mem *Memory) Region(addr int) (rg *Region) {
	if addr >= 0 && addr < len(mem.region) {
		rg = mem.region[addr]
	}
	return
}

// Regions returns the registered regions.
func (mem *Memory) Regions() []*Region {
	return mem.regions
}

// Permission returns the permission of the cell at addr.
func (mem *Memory) Permission(addr int) (perm Permission, err error) {
	err = mem.check(addr)
	if err != nil {
		return
	}
	perm = mem.perm[addr]
	return
}
