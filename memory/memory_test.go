package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(0)
	assert.Equal(DEFAULT_SIZE, mem.Size())

	err := mem.StoreByte(10, 0xab, nil)
	assert.NoError(err)

	value, err := mem.LoadByte(10)
	assert.NoError(err)
	assert.Equal(byte(0xab), value)

	mem.Reset()
	value, err = mem.LoadByte(10)
	assert.NoError(err)
	assert.Equal(byte(0), value)
}

func TestMemory_Word(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(16)

	err := mem.StoreWord(4, 0x1234, nil)
	assert.NoError(err)
	assert.Equal([]byte{0x12, 0x34}, mem.Bytes(4, 2))

	word, err := mem.LoadWord(4)
	assert.NoError(err)
	assert.Equal(uint16(0x1234), word)
}

func TestMemory_Bounds(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(16)

	table := []int{-1, 16, 1000}
	for _, addr := range table {
		_, err := mem.LoadByte(addr)
		assert.ErrorIs(err, ErrOutOfBounds, addr)

		var aerr *AccessError
		assert.True(errors.As(err, &aerr))
		assert.Equal(addr, aerr.Addr)

		err = mem.StoreByte(addr, 1, nil)
		assert.ErrorIs(err, ErrOutOfBounds, addr)
	}

	// Word straddling the end.
	_, err := mem.LoadWord(15)
	assert.ErrorIs(err, ErrOutOfBounds)

	err = mem.StoreWord(15, 0xffff, nil)
	assert.ErrorIs(err, ErrOutOfBounds)

	value, err := mem.LoadByte(15)
	assert.NoError(err)
	assert.Equal(byte(0), value, "partial word store must not land")
}

func TestMemory_StoreBytes(t *testing.T) {
	assert := assert.New(t)

	owner := &struct{ name string }{"rom"}
	mem := NewMemory(8)
	_, err := mem.AddRegion("rom", 0, 3, READ_ONLY, owner)
	assert.NoError(err)

	err = mem.StoreBytes(0, []byte{1, 2, 3, 4, 5})
	assert.NoError(err)
	assert.Equal([]byte{1, 2, 3, 4, 5, 0, 0, 0}, mem.Bytes(0, 100))

	err = mem.StoreBytes(4, []byte{1, 2, 3, 4, 5})
	assert.ErrorIs(err, ErrImageTooLarge)
}

func TestMemory_Regions(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(1024)

	_, err := mem.AddRegion("a", 10, 800, READ_WRITE, nil)
	assert.NoError(err)

	_, err = mem.AddRegion("b", 10, 800, READ_WRITE, nil)
	assert.ErrorIs(err, ErrRegionOverlap)

	_, err = mem.AddRegion("c", 801, 1023, READ_WRITE, nil)
	assert.NoError(err)

	_, err = mem.AddRegion("d", 0, 10, READ_WRITE, nil)
	assert.ErrorIs(err, ErrRegionOverlap)

	_, err = mem.AddRegion("e", 1000, 1024, READ_WRITE, nil)
	assert.ErrorIs(err, ErrRegionInvalid)

	_, err = mem.AddRegion("f", 5, 4, READ_WRITE, nil)
	assert.ErrorIs(err, ErrRegionInvalid)

	_, err = mem.AddRegion("a", 0, 5, READ_WRITE, nil)
	assert.ErrorIs(err, ErrRegionExists)

	assert.Len(mem.Regions(), 2)
	assert.Equal("a", mem.Region(10).Id)
	assert.Equal("c", mem.Region(1023).Id)
	assert.Nil(mem.Region(9))

	err = mem.RemoveRegion("a")
	assert.NoError(err)
	assert.Nil(mem.Region(10))

	err = mem.RemoveRegion("a")
	assert.ErrorIs(err, ErrRegionMissing)

	_, err = mem.AddRegion("b", 10, 800, READ_WRITE, nil)
	assert.NoError(err)

	mem.Reset()
	assert.Empty(mem.Regions())
}

func TestMemory_ReadOnly(t *testing.T) {
	assert := assert.New(t)

	owner := &struct{ name string }{"device"}
	other := &struct{ name string }{"other"}

	mem := NewMemory(64)
	_, err := mem.AddRegion("dev", 16, 31, READ_ONLY, owner)
	assert.NoError(err)

	perm, err := mem.Permission(16)
	assert.NoError(err)
	assert.Equal(READ_ONLY, perm)
	assert.Equal("ro", perm.String())
	assert.Equal("rw", READ_WRITE.String())

	err = mem.StoreByte(16, 1, nil)
	assert.ErrorIs(err, ErrReadOnly)

	err = mem.StoreByte(16, 1, other)
	assert.ErrorIs(err, ErrReadOnly)

	err = mem.StoreByte(16, 1, owner)
	assert.NoError(err)

	err = mem.StoreWord(15, 0xaaaa, nil)
	assert.ErrorIs(err, ErrReadOnly)
	var aerr *AccessError
	assert.True(errors.As(err, &aerr))
	assert.Equal(16, aerr.Addr)

	value, err := mem.LoadByte(15)
	assert.NoError(err)
	assert.Equal(byte(0), value)

	// Content survives region removal, and the cells become writable.
	err = mem.RemoveRegion("dev")
	assert.NoError(err)

	value, err = mem.LoadByte(16)
	assert.NoError(err)
	assert.Equal(byte(1), value)

	err = mem.StoreByte(16, 2, nil)
	assert.NoError(err)
}
