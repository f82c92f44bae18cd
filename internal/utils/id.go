package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// GenerateDocumentID derives a document id from upload time and content hash.
// Re-ingesting the same bytes still yields a fresh id, matching the
// immutable-document model.
func GenerateDocumentID(content []byte) string {
	sum := sha256.Sum256(content)
	return time.Now().UTC().Format("20060102150405") + "_" + hex.EncodeToString(sum[:])[:16]
}
