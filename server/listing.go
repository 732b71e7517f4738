package server

import (
	"fmt"
	"os"
	"time"
)

const listYear = 365 * 24 * time.Hour

// formatListEntry renders one long-format listing line:
//
//	-rw-r--r--  1  root  root      104857  Jun 12 06:09  petrel.bin
//	drwxr-xr-x  1  root  root           0  Jun 12 06:09  firmware/
//
// Directories carry a trailing slash and size 0. The permission columns are
// cosmetic; actual write access is decided per credential, not per file.
// The filesystem seam carries no ownership, so entries list as root's.
func formatListEntry(info os.FileInfo, now time.Time) string {
	perms := "-rw-r--r--"
	size := info.Size()
	name := info.Name()
	if info.IsDir() {
		perms = "drwxr-xr-x"
		size = 0
		name += "/"
	}
	return fmt.Sprintf("%s  1  %s  %s  %10d  %11s  %s",
		perms, ownerColumn(0), ownerColumn(0), size, formatListTime(info.ModTime(), now), name)
}

// ownerColumn renders a uid or gid for a listing line: 0 displays as root,
// anything else as the number. Names pad right, numbers pad left, matching
// ls.
func ownerColumn(id int) string {
	if id == 0 {
		return fmt.Sprintf("%-4s", "root")
	}
	return fmt.Sprintf("%4d", id)
}

// formatListTime renders a modification time the way ls does: hour and
// minute for timestamps within the last year, the year instead for older
// ones.
func formatListTime(t, now time.Time) string {
	if now.Sub(t) < listYear {
		return t.Format("Jan _2 15:04")
	}
	return t.Format("Jan _2  2006")
}
