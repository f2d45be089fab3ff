package backup

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const filePrefix = "backup-"

// FileSink writes gzip-compressed JSON snapshots to Dir and keeps the
// newest Keep files (all of them when Keep is 0).
type FileSink struct {
	Dir  string
	Keep int
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, snap *Snapshot) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}

	name := filepath.Join(s.Dir, fmt.Sprintf("%s%s-%s.json.gz", filePrefix, snap.TakenAt.Format("20060102T150405Z"), snap.ID[:8]))
	tmp := name + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := Encode(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, name); err != nil {
		return fmt.Errorf("finalizing backup: %w", err)
	}
	return s.prune()
}

// Encode writes snap as gzip-compressed JSON.
func Encode(w io.Writer, snap *Snapshot) error {
	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		zw.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return zw.Close()
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	var snap Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

func (s *FileSink) prune() error {
	if s.Keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".json.gz") {
			files = append(files, e.Name())
		}
	}
	// names sort by timestamp
	sort.Strings(files)
	for len(files) > s.Keep {
		if err := os.Remove(filepath.Join(s.Dir, files[0])); err != nil {
			return err
		}
		files = files[1:]
	}
	return nil
}
