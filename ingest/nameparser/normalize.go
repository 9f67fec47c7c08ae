// Package nameparser canonicalizes the line-protocol-style series name
// text the ingestion front end hands the core ("measurement,tag=value..."
// ) into the sorted, length-prefixed byte form that defines series
// identity. Two names that differ only in tag order normalize to the
// same canonical key.
package nameparser

import (
	"bytes"
	"fmt"
	"sort"
)

// ErrEmptyName is returned when raw has no measurement.
var ErrEmptyName = fmt.Errorf("nameparser: empty measurement name")

// ErrMalformedTag is returned when a tag segment has no '=' separator.
var ErrMalformedTag = fmt.Errorf("nameparser: malformed tag, expected key=value")

// Normalize parses raw as "measurement[,tag=value]*", sorts the tags
// lexicographically by key, and returns the canonical key bytes used as
// the registry's name-catalog key. Equality of the returned bytes
// defines series identity.
func Normalize(raw []byte) ([]byte, error) {
	parts := bytes.Split(raw, []byte(","))
	measurement := parts[0]
	if len(measurement) == 0 {
		return nil, ErrEmptyName
	}

	tags := make([]tag, 0, len(parts)-1)
	for _, p := range parts[1:] {
		eq := bytes.IndexByte(p, '=')
		if eq < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedTag, p)
		}
		tags = append(tags, tag{key: p[:eq], value: p[eq+1:]})
	}

	sort.Slice(tags, func(i, j int) bool {
		return bytes.Compare(tags[i].key, tags[j].key) < 0
	})

	return appendKey(nil, measurement, tags), nil
}

// Split returns the measurement and "key=value" tag strings encoded in a
// canonical key produced by Normalize, for diagnostics and logging.
func Split(canonical []byte) (measurement []byte, tags []string) {
	m, ts := parseKey(canonical)
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = fmt.Sprintf("%s=%s", t.key, t.value)
	}
	return m, out
}
