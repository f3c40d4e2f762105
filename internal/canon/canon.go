// Package canon produces the canonical JSON encoding Lattice uses anywhere
// a byte-stable digest matters: metadata blobs (so their content OID is
// reproducible), plans (so plan.digest() is stable across runs), and
// journal documents. encoding/json already sorts map keys; canon's job is
// to give every caller one helper so that guarantee is never accidentally
// bypassed by a hand-rolled Marshal call.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Marshal returns the canonical JSON encoding of v: compact, with map keys
// sorted (encoding/json's native behavior) and no HTML-escaping surprises.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; strip it so the
	// digest is stable regardless of how the caller writes the bytes out.
	b := buf.Bytes()
	if len(b) > 0 && b[len(b)-1] == '\n' {
		b = b[:len(b)-1]
	}
	return b, nil
}

// Digest returns the lowercase hex SHA-256 digest of v's canonical encoding.
func Digest(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
