package emulator

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shibukawa/configdir"

	"github.com/ezrec/sim16/cpu"
	"github.com/ezrec/sim16/io"
	"github.com/ezrec/sim16/memory"
)

// CONFIG_FILE is the file name searched for by FindConfig.
const CONFIG_FILE = "sim16.toml"

// MEMORY_LIMIT is the largest memory addressable by a 16-bit IP.
const MEMORY_LIMIT = 0x10000

// Config is the machine configuration.
type Config struct {
	MemorySize      int    `toml:"memory_size"`
	UserStack       uint16 `toml:"user_stack"`
	SupervisorStack uint16 `toml:"supervisor_stack"`
	ProtectVectors  bool   `toml:"protect_vectors"` // Make the vector table read-only.
	Verbose         bool   `toml:"verbose"`

	Vectors cpu.Vectors      `toml:"vectors"`
	Pic     io.PicPorts      `toml:"pic"`
	Timer   io.TimerPorts    `toml:"timer"`
	Keypad  io.KeypadPorts   `toml:"keypad"`
	Tape    io.TapePorts     `toml:"tape"`
	Display io.DisplayLayout `toml:"display"`
}

// DefaultConfig returns the configuration of the reference machine.
func DefaultConfig() Config {
	return Config{
		MemorySize:      memory.DEFAULT_SIZE,
		UserStack:       cpu.USER_STACK_TOP,
		SupervisorStack: cpu.SUPERVISOR_STACK_TOP,
		Vectors:         cpu.DefaultVectors,
		Pic:             io.DefaultPicPorts,
		Timer:           io.DefaultTimerPorts,
		Keypad:          io.DefaultKeypadPorts,
		Tape:            io.DefaultTapePorts,
		Display:         io.DefaultDisplayLayout,
	}
}

// LoadConfig reads a TOML configuration. Keys missing from the file keep
// their default values; unknown keys are an error.
func LoadConfig(path string) (cfg Config, err error) {
	cfg = DefaultConfig()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		err = errors.Join(ErrConfig, err)
		return
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		var keys []string
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		err = errors.Join(ErrConfig, ErrConfigKey(strings.Join(keys, ", ")))
		return
	}

	err = cfg.Validate()
	return
}

// FindConfig returns the path of the first CONFIG_FILE in the per-user
// and system configuration folders, or "" if there is none.
func FindConfig() string {
	configDirs := configdir.New("ezrec", "sim16")
	folder := configDirs.QueryFolderContainsFile(CONFIG_FILE)
	if folder == nil {
		return ""
	}
	return filepath.Join(folder.Path, CONFIG_FILE)
}

// Validate checks that the configuration describes a buildable machine.
func (cfg *Config) Validate() (err error) {
	size := cfg.MemorySize

	switch {
	case size <= 0 || size > MEMORY_LIMIT:
		err = ErrConfigValue(f("memory_size %d", size))
	case int(cfg.UserStack) > size || int(cfg.SupervisorStack) > size:
		err = ErrConfigValue(f("stack top beyond memory_size %d", size))
	case int(max(cfg.Vectors.Interrupt, cfg.Vectors.Syscall, cfg.Vectors.Exception))+3 > size:
		err = ErrConfigValue(f("vectors beyond memory_size %d", size))
	case cfg.Display.Length <= 0 || cfg.Display.Base < 0 || cfg.Display.Base+cfg.Display.Length > size:
		err = ErrConfigValue(f("display 0x%04x+%d", cfg.Display.Base, cfg.Display.Length))
	}

	if err != nil {
		err = errors.Join(ErrConfig, err)
	}
	return
}

// vectorsEnd is the last byte of the vector table.
func (cfg *Config) vectorsEnd() int {
	return int(max(cfg.Vectors.Interrupt, cfg.Vectors.Syscall, cfg.Vectors.Exception)) + 2
}
