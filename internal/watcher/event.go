// Package watcher turns filesystem notifications into debounced batches of
// changed paths.
package watcher

import "fmt"

// EventKind represents the kind of a filesystem event
type EventKind int

const (
	KindCreate EventKind = iota
	KindWrite
	KindChmod
	KindRemove
	KindRename
	KindNotice
	KindRescan
	KindError
)

// String returns a string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindWrite:
		return "write"
	case KindChmod:
		return "chmod"
	case KindRemove:
		return "remove"
	case KindRename:
		return "rename"
	case KindNotice:
		return "notice"
	case KindRescan:
		return "rescan"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single notification from the watch primitive.
//
// For KindRename, Path is the destination and From the source. Err is only
// set for KindError.
type Event struct {
	Kind EventKind
	Path string
	From string
	Err  error
}

// PathOfInterest returns the path a significant event refers to.
// Notices, rescans, errors and events without a path are not significant.
func (e Event) PathOfInterest() (string, bool) {
	switch e.Kind {
	case KindCreate, KindWrite, KindChmod, KindRemove, KindRename:
		if e.Path == "" {
			return "", false
		}
		return e.Path, true
	default:
		return "", false
	}
}

func (e Event) String() string {
	switch {
	case e.Kind == KindError && e.Err != nil:
		return fmt.Sprintf("error: %v", e.Err)
	case e.Kind == KindRename && e.From != "":
		return fmt.Sprintf("rename %s -> %s", e.From, e.Path)
	default:
		return fmt.Sprintf("%s %s", e.Kind, e.Path)
	}
}
