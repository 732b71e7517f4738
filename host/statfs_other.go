//go:build !linux

package host

func diskUsage(string) (Usage, error) {
	return Usage{}, ErrUnsupported
}

func syncFilesystems() {}
