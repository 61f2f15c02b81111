// Package models defines the domain types for vaultlens.
package models

import (
	"path"
	"strings"
	"time"
)

// Document is a Markdown note in the vault as seen by the selection engine.
// Tags are not carried here; they are resolved through the tag index.
type Document struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Basename   string    `json:"basename"`
	ParentPath string    `json:"parent_path"`
	Title      string    `json:"title,omitempty"`
	CTime      time.Time `json:"ctime"`
	MTime      time.Time `json:"mtime"`
}

// NewDocument derives Name, Basename and ParentPath from a vault-relative path.
func NewDocument(p string, ctime, mtime time.Time) Document {
	p = strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
	name := path.Base(p)
	parent := path.Dir(p)
	if parent == "." {
		parent = ""
	}
	return Document{
		Path:       p,
		Name:       name,
		Basename:   strings.TrimSuffix(name, path.Ext(name)),
		ParentPath: parent,
		CTime:      ctime,
		MTime:      mtime,
	}
}

// NoteMetadata is a lightweight representation returned by storage list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
