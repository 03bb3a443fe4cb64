package event

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	assert := assert.New(t)

	rec := &Recorder{}
	Publish(rec, Register{Index: 0, Name: "A", Value: 5, Access: ACCESS_WRITE})
	Publish(rec, Alu{Op: "add", Width: 16, A: 2, B: 3, Result: 5})
	Publish(nil, Alu{Op: "dropped"})

	assert.Len(rec.Events, 2)
	assert.Len(rec.Of(SOURCE_ALU), 1)
	assert.Equal("write A 0x0005", rec.Events[0].String())

	rec.Reset()
	assert.Empty(rec.Events)
}

func TestMulti(t *testing.T) {
	assert := assert.New(t)

	var count int
	a := &Recorder{}
	multi := Multi{a, nil, Func(func(ev Event) { count++ })}

	multi.Publish(Irq{Op: "raise", Line: 1})

	assert.Len(a.Events, 1)
	assert.Equal(1, count)
}

func TestLogSink(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&out)
	logger.SetLevel(logrus.DebugLevel)

	sink := &LogSink{Logger: logger, Filter: map[Source]bool{SOURCE_IO: true}}
	sink.Publish(Alu{Op: "add"})
	assert.Empty(out.String())

	sink.Publish(Io{Name: "IRQMASK", Address: 0, Value: 3, Access: ACCESS_WRITE})
	assert.Contains(out.String(), "IRQMASK")
	assert.Contains(out.String(), "port=0")
}

func TestSourceString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("irq", SOURCE_IRQ.String())
	assert.Equal("Source(42)", Source(42).String())
	assert.Equal("update", ACCESS_UPDATE.String())
}
