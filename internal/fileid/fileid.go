// Package fileid provides a deterministic candidate document ID from a file
// path, for CVs ingested out of watched drop directories.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file-"

// FileDocID returns a stable document ID for the given absolute path. Same
// path always yields the same ID, so a re-dropped file replaces its previous
// ingestion instead of duplicating the candidate.
func FileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
