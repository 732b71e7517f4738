//go:build linux

package host

import "golang.org/x/sys/unix"

func diskUsage(path string) (Usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Usage{}, err
	}
	bsize := uint64(st.Bsize)
	size := st.Blocks * bsize
	free := st.Bfree * bsize
	return Usage{
		Size:  size,
		Used:  size - free,
		Avail: st.Bavail * bsize,
	}, nil
}

func syncFilesystems() {
	unix.Sync()
}
