package store

import (
	"io/fs"
	"path/filepath"
)

// Sizes is a compact on-disk view of the two logical stores, exposed
// through telemetry.
type Sizes struct {
	DiskBytes uint64
	Records   int
	Events    int
}

// GetSizes returns best-effort size figures: total bytes under the DB
// path plus row counts from a full prefix scan. Cheap enough for a
// metrics scrape against a reaction-sized DB.
func GetSizes() Sizes {
	var s Sizes
	if db == nil || dbPath == "" {
		return s
	}
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			s.DiskBytes += uint64(fi.Size())
		}
		return nil
	})
	if recs, err := ListRecords(); err == nil {
		s.Records = len(recs)
	}
	if evs, err := ListEventKeys(""); err == nil {
		s.Events = len(evs)
	}
	return s
}
