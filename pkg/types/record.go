package types

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType identifies what kind of filesystem entry a FileRecord describes.
type FileType string

const (
	FileTypeFile      FileType = "file"
	FileTypeDirectory FileType = "directory"
	FileTypeSymlink   FileType = "symlink"
)

// FileRecord is the unit stored by the index: one entry per indexed path.
//
// Path is the primary key. NewFileRecord derives Extension from Name via
// NormalizeExtension; a FileRecord built as a struct literal keeps whatever
// Extension the caller sets.
type FileRecord struct {
	Path          string
	Name          string
	ParentPath    string
	Extension     string
	SizeBytes     uint64
	Modified      time.Time
	FileType      FileType
	ContentDigest string // optional, empty if not computed
	ContentTokens []string
	AccessCount   uint64
	IndexedAt     time.Time
}

// NormalizeExtension implements I2: extension = lowercase(suffix(name)) if
// name contains a '.', else empty.
func NormalizeExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NewFileRecord builds a FileRecord from a path and the metadata an Indexer
// gathers while walking the filesystem. It normalizes Path, Name, and
// Extension so that callers never have to.
func NewFileRecord(absPath string, size uint64, modified time.Time, ft FileType) *FileRecord {
	name := filepath.Base(absPath)
	return &FileRecord{
		Path:       filepath.Clean(absPath),
		Name:       name,
		ParentPath: filepath.Dir(absPath),
		Extension:  NormalizeExtension(name),
		SizeBytes:  size,
		Modified:   modified,
		FileType:   ft,
	}
}

// HasContent reports whether this record carries tokenized content, i.e.
// it is eligible for scope=Content matching.
func (f *FileRecord) HasContent() bool {
	return len(f.ContentTokens) > 0
}
