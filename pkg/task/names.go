package task

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DaemonNamePrefix is prepended to a daemon's index to form its name
const DaemonNamePrefix = "node-"

// idSeparator separates the task name from the unique part of a task ID
const idSeparator = "__"

var namePrefixes = map[Kind]string{
	KindBackupSnapshot:   "snapshot-",
	KindBackupUpload:     "upload-",
	KindSnapshotDownload: "download-",
	KindSnapshotRestore:  "restore-",
}

// DaemonName returns the name of the daemon with the given index
func DaemonName(index int) string {
	return DaemonNamePrefix + strconv.Itoa(index)
}

// DaemonIndex parses the index out of a daemon name
func DaemonIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, DaemonNamePrefix)
	if !ok {
		return 0, false
	}
	index, err := strconv.Atoi(rest)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// NameFor returns the deterministic name of the task of the given kind that
// runs against daemon. For KindDaemon it is the daemon name itself.
func NameFor(kind Kind, daemon string) string {
	return namePrefixes[kind] + daemon
}

// NewID returns a new unique task ID for a task called name
func NewID(name string) string {
	return name + idSeparator + uuid.NewString()
}

// NameFromID returns the task name encoded in an ID produced by NewID
func NameFromID(id string) (string, bool) {
	name, _, ok := strings.Cut(id, idSeparator)
	return name, ok && name != ""
}
