package host

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskUsage(t *testing.T) {
	h := New(nil)
	usage, err := h.DiskUsage(t.TempDir())
	if errors.Is(err, ErrUnsupported) {
		t.Skip("statfs not available on this platform")
	}
	require.NoError(t, err)
	assert.Positive(t, usage.Size)
	assert.LessOrEqual(t, usage.Avail, usage.Size)
	assert.LessOrEqual(t, usage.Used, usage.Size)
}

func TestDiskUsageMissingPath(t *testing.T) {
	h := New(nil)
	_, err := h.DiskUsage("/definitely/not/a/real/path")
	assert.Error(t, err)
}

func TestUsedPercent(t *testing.T) {
	assert.Equal(t, 0, Usage{}.UsedPercent())
	assert.Equal(t, 50, Usage{Size: 100, Used: 50}.UsedPercent())
	assert.Equal(t, 100, Usage{Size: 100, Used: 100}.UsedPercent())
	assert.Equal(t, 33, Usage{Size: 3, Used: 1}.UsedPercent())
}

func TestMemoryUsage(t *testing.T) {
	h := New(nil)
	mem := h.MemoryUsage()
	assert.Positive(t, mem.Size)
	assert.Positive(t, mem.Used)
	assert.Equal(t, mem.Size-mem.Used, mem.Avail)
}

func TestReclaim(t *testing.T) {
	h := New(nil)
	// Nothing useful to assert about the amount; it must simply not panic
	// and must leave the heap coherent.
	h.Reclaim()
	mem := h.MemoryUsage()
	assert.LessOrEqual(t, mem.Used, mem.Size)
}

func TestHaltRestartHooks(t *testing.T) {
	var halted, restarted bool
	h := New(nil,
		WithHaltHook(func() { halted = true }),
		WithRestartHook(func() { restarted = true }),
	)

	h.Halt()
	h.Restart()
	assert.True(t, halted)
	assert.True(t, restarted)

	// Hookless hosts log and carry on.
	New(nil).Halt()
	New(nil).Restart()
	New(nil).Sync()
}
