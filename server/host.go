package server

import (
	"log/slog"

	"github.com/petrel-ftp/petrel/host"
)

// Host is the slice of machine facilities the SITE administration commands
// consume: disk and memory figures for DF and FREE, allocator reclaim for
// GC, and sync/halt/restart for SHUTDOWN. *host.Host implements it; tests
// substitute fakes.
type Host interface {
	// DiskUsage reports capacity figures for the filesystem holding path.
	DiskUsage(path string) (host.Usage, error)

	// MemoryUsage reports heap figures for the process.
	MemoryUsage() host.MemUsage

	// Reclaim runs a garbage collection and returns the bytes released.
	Reclaim() uint64

	// Sync flushes filesystem buffers to stable storage.
	Sync()

	// Halt asks the machine to stop. It must not block.
	Halt()

	// Restart asks the machine to restart. It must not block.
	Restart()
}

func newDefaultHost(log *slog.Logger) Host {
	return host.New(log)
}
