package server

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeFileInfo struct {
	name    string
	size    int64
	dir     bool
	modTime time.Time
}

func (f fakeFileInfo) Name() string { return f.name }
func (f fakeFileInfo) Size() int64  { return f.size }
func (f fakeFileInfo) Mode() fs.FileMode {
	if f.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (f fakeFileInfo) ModTime() time.Time { return f.modTime }
func (f fakeFileInfo) IsDir() bool        { return f.dir }
func (f fakeFileInfo) Sys() any           { return nil }

func TestFormatListEntry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		info fakeFileInfo
		want string
	}{
		{
			name: "recent file",
			info: fakeFileInfo{
				name:    "petrel.bin",
				size:    104857,
				modTime: time.Date(2026, time.June, 12, 6, 9, 0, 0, time.UTC),
			},
			want: "-rw-r--r--  1  root  root      104857  Jun 12 06:09  petrel.bin",
		},
		{
			name: "old file shows year",
			info: fakeFileInfo{
				name:    "archive.tar",
				size:    42,
				modTime: time.Date(2024, time.June, 12, 6, 9, 0, 0, time.UTC),
			},
			want: "-rw-r--r--  1  root  root          42  Jun 12  2024  archive.tar",
		},
		{
			name: "directory gets slash and zero size",
			info: fakeFileInfo{
				name:    "firmware",
				size:    512,
				dir:     true,
				modTime: time.Date(2026, time.June, 12, 6, 9, 0, 0, time.UTC),
			},
			want: "drwxr-xr-x  1  root  root           0  Jun 12 06:09  firmware/",
		},
		{
			name: "single digit day pads with space",
			info: fakeFileInfo{
				name:    "note.txt",
				size:    7,
				modTime: time.Date(2026, time.June, 2, 23, 59, 0, 0, time.UTC),
			},
			want: "-rw-r--r--  1  root  root           7  Jun  2 23:59  note.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatListEntry(tt.info, now))
		})
	}
}

func TestOwnerColumn(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "root", ownerColumn(0))
	assert.Equal(t, "1001", ownerColumn(1001))
	assert.Equal(t, "  50", ownerColumn(50))
}

func TestFormatListTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

	recent := time.Date(2026, time.January, 3, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, "Jan  3 08:30", formatListTime(recent, now))

	old := time.Date(2025, time.June, 14, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, "Jun 14  2025", formatListTime(old, now))

	// Exactly at the boundary counts as old.
	boundary := now.Add(-listYear)
	assert.Equal(t, "Jun 15  2025", formatListTime(boundary, now))
}
