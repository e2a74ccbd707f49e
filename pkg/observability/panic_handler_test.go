package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "test operation")
		panic("something broke")
	}()

	out := buf.String()
	assert.Contains(t, out, "PANIC recovered")
	assert.Contains(t, out, "something broke")
	assert.Contains(t, out, "test operation")
}

func TestRecoverPanicWithCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("callback receives recovered value", func(t *testing.T) {
		var got interface{}
		func() {
			defer RecoverPanicWithCallback(logger, "handler", func(r interface{}) { got = r })
			panic("bad")
		}()
		assert.Equal(t, "bad", got)
	})

	t.Run("callback not run without panic", func(t *testing.T) {
		called := false
		func() {
			defer RecoverPanicWithCallback(logger, "handler", func(interface{}) { called = true })
		}()
		assert.False(t, called)
	})
}
