package jsonlset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// Write encodes ds as JSON Lines. Columns are written in table column order
// and every value as a JSON string or null. A table without rows is written
// as a declaration line.
func Write(w io.Writer, ds *types.Dataset) error {
	bw := bufio.NewWriter(w)
	for _, t := range ds.Tables {
		name, err := json.Marshal(t.Name)
		if err != nil {
			return err
		}
		if len(t.Rows) == 0 {
			if _, err := fmt.Fprintf(bw, "{\"table\":%s}\n", name); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
			continue
		}
		for _, row := range t.Rows {
			if err := writeRow(bw, name, t.Columns, row); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	return nil
}

func writeRow(w *bufio.Writer, name []byte, columns []string, row types.Row) error {
	fmt.Fprintf(w, "{\"table\":%s,\"row\":{", name)
	for i, col := range columns {
		if i > 0 {
			w.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return err
		}
		w.Write(key)
		w.WriteByte(':')
		v := row.Value(col)
		if !v.Valid {
			w.WriteString("null")
			continue
		}
		val, err := json.Marshal(v.String)
		if err != nil {
			return err
		}
		w.Write(val)
	}
	_, err := w.WriteString("}}\n")
	return err
}

// WriteFile atomically writes ds to path using the temp-file, fsync, rename
// pattern.
func WriteFile(path string, ds *types.Dataset) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := Write(tmp, ds); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
