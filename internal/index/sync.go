package index

import (
	"log/slog"
	"time"

	"github.com/starford/vaultlens/internal/checksum"
	"github.com/starford/vaultlens/internal/parser"
	"github.com/starford/vaultlens/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	logger.Info("sync: complete", slog.Int("files", len(metas)))
	return nil
}

// IndexFile parses data and upserts it into the DB. modTime is the file's
// modification time; it also seeds the creation time unless the
// frontmatter carries a "created" field.
func IndexFile(db *DB, path string, data []byte, modTime time.Time) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	row := NoteRow{
		Path:      path,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		CreatedAt: modTime,
		UpdatedAt: modTime,
	}
	if !res.Created.IsZero() {
		row.CreatedAt = res.Created
		row.CreatedExplicit = true
	}
	return db.UpsertNote(row)
}

// IndexNote is IndexFile bound to db.
func (db *DB) IndexNote(path string, data []byte, modTime time.Time) error {
	return IndexFile(db, path, data, modTime)
}
