package fsstore

import "os"

// The audit trail can hold chat content, so everything defaults to
// owner-only permissions.
const (
	defaultDirPerm        = 0o700
	defaultFilePerm       = 0o600
	defaultRotateMaxBytes = 100 * 1024 * 1024
)

// FileOptions control permissions for atomic writes.
type FileOptions struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

func (o FileOptions) withDefaults() FileOptions {
	if o.DirPerm == 0 {
		o.DirPerm = defaultDirPerm
	}
	if o.FilePerm == 0 {
		o.FilePerm = defaultFilePerm
	}
	return o
}

// JSONLOptions control the audit log writer.
type JSONLOptions struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
	// RotateMaxBytes rotates the log once it would grow past this size.
	RotateMaxBytes int64
	// FlushEachWrite flushes the buffer after every record.
	FlushEachWrite bool
	// SyncEachWrite additionally fsyncs after every record.
	SyncEachWrite bool
}

func (o JSONLOptions) withDefaults() JSONLOptions {
	if o.DirPerm == 0 {
		o.DirPerm = defaultDirPerm
	}
	if o.FilePerm == 0 {
		o.FilePerm = defaultFilePerm
	}
	if o.RotateMaxBytes <= 0 {
		o.RotateMaxBytes = defaultRotateMaxBytes
	}
	if !o.FlushEachWrite && !o.SyncEachWrite {
		o.FlushEachWrite = true
	}
	return o
}
