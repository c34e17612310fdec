package event

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// DomainSnapshot separates snapshot fingerprints from any other hash.
const DomainSnapshot = "myuni/snapshot/v1"

// Fingerprint computes a content hash of a snapshot.
//
// Surrogate ids are excluded and record order does not matter, so two syncs
// of an unchanged remote collection produce the same fingerprint. Strings are
// NFC normalized before hashing.
//
// Format: hex(SHA256(domain + 0x00 + canonical records))
func Fingerprint(events []Event) string {
	records := make([]string, len(events))
	for i, e := range events {
		records[i] = canonicalRecord(e)
	}
	sort.Strings(records)

	h := sha256.New()
	h.Write([]byte(DomainSnapshot))
	h.Write([]byte{0x00})
	h.Write([]byte{'['})
	for i, r := range records {
		if i > 0 {
			h.Write([]byte{','})
		}
		h.Write([]byte(r))
	}
	h.Write([]byte{']'})
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalRecord renders an event as JSON with keys in sorted order.
func canonicalRecord(e Event) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	fields := [][2]string{
		{FieldDescription, e.Description},
		{FieldPlace, e.Place},
		{FieldTime, e.Time},
		{FieldTitle, e.Title},
	}
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(canonicalString(f[0]))
		buf.WriteByte(':')
		buf.Write(canonicalString(f[1]))
	}
	buf.WriteByte('}')
	return buf.String()
}

// canonicalString encodes s after NFC normalization, without HTML escaping.
func canonicalString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string never fails.
	_ = enc.Encode(norm.NFC.String(s))
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
}
