package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(file, make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.bin"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := DiskUsageBytes(file)
	if err != nil || n != 100 {
		t.Errorf("file: got %d, %v", n, err)
	}

	n, err = DiskUsageBytes(dir)
	if err != nil || n != 150 {
		t.Errorf("dir: got %d, %v", n, err)
	}

	n, err = DiskUsageBytes(dir, filepath.Join(dir, "missing"), "")
	if err != nil || n != 150 {
		t.Errorf("mixed: got %d, %v", n, err)
	}
}
