// Package host exposes the few host-process facilities SITE administration
// needs: disk and memory usage, forced reclaim, filesystem flush, and the
// halt/restart delegation. The FTP engine only requests a halt or restart;
// carrying it out belongs to the hosting process, so both are hooks.
package host

import (
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
)

// ErrUnsupported is returned by DiskUsage on platforms without statfs.
var ErrUnsupported = errors.New("not supported on this platform")

// Usage is a filesystem space summary in bytes.
type Usage struct {
	Size  uint64
	Used  uint64
	Avail uint64
}

// UsedPercent reports Used as a whole percentage of Size.
func (u Usage) UsedPercent() int {
	if u.Size == 0 {
		return 0
	}
	return int((u.Used*100 + u.Size/2) / u.Size)
}

// MemUsage is a heap summary in bytes.
type MemUsage struct {
	Size  uint64 // heap obtained from the OS
	Used  uint64 // live allocations
	Avail uint64
}

// UsedPercent reports Used as a whole percentage of Size.
func (m MemUsage) UsedPercent() int {
	if m.Size == 0 {
		return 0
	}
	return int((m.Used*100 + m.Size/2) / m.Size)
}

// Host implements the process capability surface. The zero value is not
// usable; construct with New.
type Host struct {
	log     *slog.Logger
	halt    func()
	restart func()
}

// Option configures a Host.
type Option func(*Host)

// WithHaltHook installs the function run when a privileged user requests
// SITE SHUTDOWN -h.
func WithHaltHook(fn func()) Option {
	return func(h *Host) { h.halt = fn }
}

// WithRestartHook installs the function run for SITE SHUTDOWN -r.
func WithRestartHook(fn func()) Option {
	return func(h *Host) { h.restart = fn }
}

// New returns a Host logging through log. Without hooks, halt and restart
// requests are logged and otherwise ignored.
func New(log *slog.Logger, opts ...Option) *Host {
	if log == nil {
		log = slog.Default()
	}
	h := &Host{log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// DiskUsage reports the space on the filesystem holding path.
func (h *Host) DiskUsage(path string) (Usage, error) {
	return diskUsage(path)
}

// MemoryUsage summarizes the Go heap.
func (h *Host) MemoryUsage() MemUsage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemUsage{
		Size:  ms.HeapSys,
		Used:  ms.HeapAlloc,
		Avail: ms.HeapSys - ms.HeapAlloc,
	}
}

// Reclaim forces a garbage collection cycle and returns the released OS
// memory to the platform, reporting roughly how many heap bytes it freed.
func (h *Host) Reclaim() uint64 {
	before := h.MemoryUsage().Used
	runtime.GC()
	debug.FreeOSMemory()
	after := h.MemoryUsage().Used
	if after >= before {
		return 0
	}
	return before - after
}

// Sync flushes dirty filesystem buffers, where the platform allows it.
func (h *Host) Sync() {
	syncFilesystems()
}

// Halt asks the hosting process to power down after the server has wound
// up.
func (h *Host) Halt() {
	h.log.Info("host halt requested")
	if h.halt != nil {
		h.halt()
	}
}

// Restart asks the hosting process to restart.
func (h *Host) Restart() {
	h.log.Info("host restart requested")
	if h.restart != nil {
		h.restart()
	}
}
