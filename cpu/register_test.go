package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/sim16/event"
)

func TestBank_Halves(t *testing.T) {
	assert := assert.New(t)

	bank := NewBank()
	assert.NoError(bank.Set(REG_A, 0x1234))
	assert.NoError(bank.Set(REG_AL, 0xff))

	a, err := bank.Get(REG_A)
	assert.NoError(err)
	assert.Equal(uint16(0x12ff), a)

	assert.NoError(bank.Set(REG_AH, 0xabcd))
	a, _ = bank.Get(REG_A)
	assert.Equal(uint16(0xcdff), a)

	ah, _ := bank.Get(REG_AH)
	al, _ := bank.Get(REG_AL)
	assert.Equal(uint16(0xcd), ah)
	assert.Equal(uint16(0xff), al)

	for _, reg := range []RegisterIndex{REG_B, REG_C, REG_D} {
		value, _ := bank.Get(reg)
		assert.Equal(uint16(0), value, reg.String())
	}

	assert.NoError(bank.Set(REG_DL, 0x42))
	d, _ := bank.Get(REG_D)
	assert.Equal(uint16(0x0042), d)
}

func TestBank_Split(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		reg    RegisterIndex
		parent RegisterIndex
		half   Half
	}{
		{REG_AH, REG_A, HALF_HIGH},
		{REG_AL, REG_A, HALF_LOW},
		{REG_BH, REG_B, HALF_HIGH},
		{REG_CL, REG_C, HALF_LOW},
		{REG_DH, REG_D, HALF_HIGH},
		{REG_DL, REG_D, HALF_LOW},
	}

	for _, entry := range table {
		parent, half := entry.reg.Split()
		assert.Equal(entry.parent, parent, entry.reg.String())
		assert.Equal(entry.half, half, entry.reg.String())
	}
}

func TestBank_Invalid(t *testing.T) {
	assert := assert.New(t)

	bank := NewBank()
	_, err := bank.Get(RegisterIndex(17))
	assert.ErrorIs(err, ErrRegisterInvalid)
	assert.ErrorIs(bank.Set(RegisterIndex(-1), 0), ErrRegisterInvalid)
	assert.ErrorIs(bank.SetReset(REG_SP, 0), ErrRegisterInvalid)
}

func TestBank_StackPointers(t *testing.T) {
	assert := assert.New(t)

	bank := NewBank()
	assert.NoError(bank.SetReset(REG_USP, 0x100))
	assert.NoError(bank.SetReset(REG_SSP, 0x200))
	bank.Reset()

	assert.Equal(STACK_USER, bank.StackMode())
	assert.Equal(uint16(0x100), bank.SP())

	bank.SetSP(0x0f0)
	bank.SetFlag(SR_SUPERVISOR, true)
	assert.Equal(STACK_SUPERVISOR, bank.StackMode())
	assert.Equal(uint16(0x200), bank.SP())

	bank.SetSP(0x1f0)
	bank.SetFlag(SR_SUPERVISOR, false)
	assert.Equal(uint16(0x0f0), bank.SP())

	usp, _ := bank.Get(REG_USP)
	ssp, _ := bank.Get(REG_SSP)
	assert.Equal(uint16(0x0f0), usp)
	assert.Equal(uint16(0x1f0), ssp)
}

func TestBank_Status(t *testing.T) {
	assert := assert.New(t)

	bank := NewBank()

	halted := 0
	bank.OnHalt = func() { halted++ }

	bank.SetFlag(SR_CARRY, true)
	assert.Equal(Status(0x0008), bank.SR())
	assert.True(bank.Flag(SR_CARRY))

	bank.SetSR(Status(0x8014))
	assert.True(bank.Flag(SR_SUPERVISOR))
	assert.True(bank.Flag(SR_IRQMASK))
	assert.True(bank.Flag(SR_ZERO))
	assert.False(bank.Flag(SR_CARRY))
	assert.Equal(0, halted)

	bank.SetFlag(SR_HALT, true)
	assert.Equal(1, halted)
	bank.SetFlag(SR_HALT, true)
	assert.Equal(1, halted)

	assert.Equal("0x8015 SI-Z-H", bank.SR().String())
}

func TestBank_Events(t *testing.T) {
	assert := assert.New(t)

	rec := &event.Recorder{}
	bank := NewBank()
	bank.Sink = rec

	assert.NoError(bank.Set(REG_BL, 7))
	bank.SetSP(0x10)

	events := rec.Of(event.SOURCE_REGISTER)
	assert.Len(events, 2)
	assert.Equal(event.Register{Index: int(REG_B), Name: "B", Value: 7, Access: event.ACCESS_WRITE}, events[0])
	assert.Equal("USP", events[1].(event.Register).Name)
}

func TestRegisterByName(t *testing.T) {
	assert := assert.New(t)

	reg, ok := RegisterByName("sp")
	assert.True(ok)
	assert.Equal(REG_SP, reg)

	reg, ok = RegisterByName("Dl")
	assert.True(ok)
	assert.Equal(REG_DL, reg)

	_, ok = RegisterByName("E")
	assert.False(ok)
}

func TestRegisterIndex_String(t *testing.T) {
	assert := assert.New(t)

	for reg := range RegisterIndex(REGISTER_COUNT) {
		found, ok := RegisterByName(reg.String())
		assert.True(ok, reg.String())
		assert.Equal(reg, found)
	}

	assert.Equal("SSP", REG_SSP.String())
	assert.Equal("RegisterIndex(17)", RegisterIndex(REGISTER_COUNT).String())
	assert.Equal("supervisor", STACK_SUPERVISOR.String())
	assert.Equal("user", STACK_USER.String())
}
