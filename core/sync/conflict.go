package sync

import (
	"fmt"
	"strings"
	"time"
)

// CheckConflict reports whether a save based on localETag would overwrite
// a different revision than remoteETag.
func CheckConflict(localETag, remoteETag string) bool {
	return localETag != remoteETag
}

// ConflictCopyName names the copy that keeps a losing edit, e.g.
// "notes (conflict 2026-01-02 15.04).md".
func ConflictCopyName(name string, at time.Time) string {
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	return fmt.Sprintf("%s (conflict %s)%s", base, at.UTC().Format("2006-01-02 15.04"), ext)
}
