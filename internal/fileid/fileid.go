// Package fileid derives a deterministic document ID from a file path.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "doc:"

// FileDocID returns a stable document ID for the given absolute path.
// Same path always yields the same ID, so re-ingesting a file keeps its
// identity across uploads and watch events.
func FileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
