package nameparser

import (
	"encoding/binary"
	"fmt"
)

// tag is a sorted key=value pair within a canonical name.
type tag struct {
	key   []byte
	value []byte
}

// appendKey serializes measurement and tags (already sorted by key) to
// dst. The total length is prepended as a uvarint, and the measurement
// and each tag key/value are length-prefixed with a uint16, mirroring
// the teacher's series-key encoding.
func appendKey(dst []byte, measurement []byte, tags []tag) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	var tcBuf [binary.MaxVarintLen64]byte

	tcSz := binary.PutUvarint(tcBuf[:], uint64(len(tags)))

	size := 2 + len(measurement) + tcSz
	for _, t := range tags {
		size += 2 + len(t.key) + 2 + len(t.value)
	}

	totalSz := binary.PutUvarint(lenBuf[:], uint64(size))
	origLen := len(dst)

	if dst == nil {
		dst = make([]byte, 0, size+totalSz)
	}

	dst = append(dst, lenBuf[:totalSz]...)

	var sz [2]byte
	binary.BigEndian.PutUint16(sz[:], uint16(len(measurement)))
	dst = append(dst, sz[:]...)
	dst = append(dst, measurement...)

	dst = append(dst, tcBuf[:tcSz]...)

	for _, t := range tags {
		binary.BigEndian.PutUint16(sz[:], uint16(len(t.key)))
		dst = append(dst, sz[:]...)
		dst = append(dst, t.key...)

		binary.BigEndian.PutUint16(sz[:], uint16(len(t.value)))
		dst = append(dst, sz[:]...)
		dst = append(dst, t.value...)
	}

	if got, exp := len(dst)-origLen, size+totalSz; got != exp {
		panic(fmt.Sprintf("canonical key encoding does not match calculated length: actual=%d, exp=%d", got, exp))
	}

	return dst
}

// parseKey extracts the measurement and tags from a canonical key
// produced by appendKey.
func parseKey(data []byte) (measurement []byte, tags []tag) {
	_, data = readUvarintPrefixed(data)

	n, data := binary.BigEndian.Uint16(data), data[2:]
	measurement, data = data[:n], data[n:]

	tagN64, i := binary.Uvarint(data)
	data = data[i:]
	tagN := int(tagN64)

	tags = make([]tag, tagN)
	for i := 0; i < tagN; i++ {
		n, data = binary.BigEndian.Uint16(data), data[2:]
		key := data[:n]
		data = data[n:]

		n, data = binary.BigEndian.Uint16(data), data[2:]
		value := data[:n]
		data = data[n:]

		tags[i] = tag{key: key, value: value}
	}
	return measurement, tags
}

func readUvarintPrefixed(data []byte) (sz int, remainder []byte) {
	sz64, i := binary.Uvarint(data)
	return int(sz64), data[i:]
}
