package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// PayloadHash fingerprints a raw payload. JSON payloads are compacted first so
// whitespace-only differences between fetches do not defeat deduplication;
// anything that does not compact hashes as-is.
func PayloadHash(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		raw = buf.Bytes()
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
