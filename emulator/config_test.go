package emulator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/sim16/cpu"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), CONFIG_FILE)
	err := os.WriteFile(path, []byte(text), 0o644)
	assert.NoError(t, err)
	return path
}

func TestConfig_Default(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	assert.NoError(cfg.Validate())
	assert.Equal(cpu.DefaultVectors, cfg.Vectors)
	assert.Equal(11, cfg.vectorsEnd())
}

func TestConfig_Load(t *testing.T) {
	assert := assert.New(t)

	path := writeConfig(t, `
memory_size = 2048
protect_vectors = true

[vectors]
interrupt = 0x10
syscall = 0x20
exception = 0x30

[display]
display_base = 0x0700
display_length = 64

[tape]
tape_data = 12
`)

	cfg, err := LoadConfig(path)
	if !assert.NoError(err) {
		return
	}

	assert.Equal(2048, cfg.MemorySize)
	assert.True(cfg.ProtectVectors)
	assert.Equal(cpu.Vectors{Interrupt: 0x10, Syscall: 0x20, Exception: 0x30}, cfg.Vectors)
	assert.Equal(0x0700, cfg.Display.Base)
	assert.Equal(64, cfg.Display.Length)
	assert.Equal(12, cfg.Tape.Data)

	// Untouched keys keep their defaults.
	assert.Equal(DefaultConfig().Tape.Status, cfg.Tape.Status)
	assert.Equal(DefaultConfig().Pic, cfg.Pic)
	assert.Equal(uint16(cpu.USER_STACK_TOP), cfg.UserStack)
}

func TestConfig_Errors(t *testing.T) {
	table := []struct {
		name string
		text string
	}{
		{"syntax", "memory_size = "},
		{"unknown", "memory_sise = 100"},
		{"memory", "memory_size = 0"},
		{"stack", "supervisor_stack = 0x800"},
		{"vectors", "[vectors]\nexception = 1023"},
		{"display", "[display]\ndisplay_base = 1020"},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := LoadConfig(writeConfig(t, entry.text))
			assert.ErrorIs(err, ErrConfig)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestConfig_UnknownKey(t *testing.T) {
	assert := assert.New(t)

	_, err := LoadConfig(writeConfig(t, "[pic]\nirq_mask = 3\nirq_bogus = 4\n"))
	var key ErrConfigKey
	if assert.ErrorAs(err, &key) {
		assert.Equal(ErrConfigKey("pic.irq_bogus"), key)
	}
}
