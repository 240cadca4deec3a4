// Package fingerprint computes the content hashes used for change detection.
//
// A hash is the hex blake2b-128 digest of the compact JSON encoding of a
// value. Records and metadata encode to the bytes they were received as, so
// the key order of an upload is part of its fingerprint. U+2028 and U+2029
// are hashed as raw characters, the way JavaScript's JSON.stringify emits
// them, so uploads fingerprint the same as in browser-side tooling.
package fingerprint

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
)

// Size is the digest length in bytes.
const Size = 16

// Hash returns the fingerprint of v.
func Hash(v any) (string, error) {
	data, err := Encode(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return Sum(data), nil
}

// Sum returns the fingerprint of bytes that are already serialised.
func Sum(data []byte) string {
	h, err := blake2b.New(Size, nil)
	if err != nil {
		// only reachable with an invalid size or key
		panic(err)
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ItemHash fingerprints one item as {"pageContent":…,"metadata":…}.
func ItemHash(pageContent string, metadata domain.Metadata) (string, error) {
	return Hash(struct {
		PageContent string          `json:"pageContent"`
		Metadata    domain.Metadata `json:"metadata"`
	}{pageContent, metadata})
}

// RecordHash fingerprints the semantic payload of a record.
func RecordHash(r domain.Record) (string, error) {
	return ItemHash(r.PageContent, r.Meta())
}

// BatchHash fingerprints a whole upload as received.
func BatchHash(records []domain.Record) (string, error) {
	if records == nil {
		records = []domain.Record{}
	}
	return Hash(records)
}

// Encode returns the compact JSON encoding of v with HTML escaping off and
// line separators unescaped. These are the bytes Hash digests.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

var (
	lineSepEscape = []byte(`\u202`)
	lineSep       = []byte("\u2028")
	paraSep       = []byte("\u2029")
)

// unescapeLineSeparators rewrites the escapes \u2028 and \u2029, which
// encoding/json always emits, back to raw UTF-8. Escape pairs are consumed
// as units so an escaped backslash followed by "u2028" is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, lineSepEscape) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 == len(b) {
			out = append(out, b[i])
			continue
		}
		if i+5 < len(b) && bytes.Equal(b[i+1:i+5], []byte("u202")) && (b[i+5] == '8' || b[i+5] == '9') {
			if b[i+5] == '8' {
				out = append(out, lineSep...)
			} else {
				out = append(out, paraSep...)
			}
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}
