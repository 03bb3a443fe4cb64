package emulator

import (
	"errors"

	"github.com/ezrec/sim16/translate"
)

var f = translate.From

var (
	ErrConfig = errors.New(f("configuration invalid"))
)

// ErrConfigKey lists configuration keys that were not understood.
type ErrConfigKey string

func (err ErrConfigKey) Error() string {
	return f("unknown keys: %v", string(err))
}

// ErrConfigValue is an out of range configuration value.
type ErrConfigValue string

func (err ErrConfigValue) Error() string {
	return f("out of range: %v", string(err))
}

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Ip     uint16
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo < 0 {
		return f("ip %v %v", translate.Hex(err.Ip), err.Err)
	}
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
