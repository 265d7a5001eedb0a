package gitfs

import "errors"

// Error kinds the engine reports. Callers discriminate with errors.Is;
// anything else that comes back is a backing-store failure, wrapped.
var (
	// ErrNotFound means the path resolves to nothing: no namespace
	// segment, no reference, no tree entry.
	ErrNotFound = errors.New("no such file or directory")

	// ErrAmbiguousReference means one reference's name is a path
	// prefix of another's, so a path under both cannot be attributed
	// to either. The repository is in a state this hierarchy cannot
	// safely represent; access is rejected, not arbitrated.
	ErrAmbiguousReference = errors.New("ambiguous reference")

	// ErrPermissionDenied rejects any open carrying write intent.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrIsDirectory rejects open/read on a directory of any kind.
	ErrIsDirectory = errors.New("is a directory")
)

// errDuplicateReference marks an exact-name collision in the catalog.
// The backing store cannot legally produce two references with the
// same name, so this is an internal fault, not an ambiguity a client
// could have caused.
var errDuplicateReference = errors.New("duplicate reference in catalog")
