package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("herdcache: corrupt entry")
	magic4     = [...]byte{'H', 'E', 'R', 'D'}
)

// Entry is the framed form of one cache value as stored in a byte store.
// Created is the write time in unix nanos; read paths compare it against
// per-tag invalidation stamps.
type Entry struct {
	Created int64
	Tags    []string
	Payload []byte
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames an entry:
//
//	magic(4) | ver(1) | ntags(u16 be)
//	tagLen(u16 be) | tag(tagLen) * ntags
//	created(u64 be) | vlen(u32 be) | payload(vlen)
func Encode(e Entry) ([]byte, error) {
	if len(e.Tags) > 0xFFFF {
		return nil, errors.New("herdcache: too many tags in entry")
	}
	total := 4 + 1 + 2
	for _, t := range e.Tags {
		if l := len(t); l == 0 || l > 0xFFFF {
			return nil, errors.New("herdcache: invalid tag length in entry")
		}
		total += 2 + len(t)
	}
	total += 8 + 4 + len(e.Payload)

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint16(u2[:], uint16(len(e.Tags)))
	buf.Write(u2[:])

	for _, t := range e.Tags {
		binary.BigEndian.PutUint16(u2[:], uint16(len(t)))
		buf.Write(u2[:])
		buf.WriteString(t)
	}

	binary.BigEndian.PutUint64(u8[:], uint64(e.Created))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])
	buf.Write(e.Payload)

	return buf.Bytes(), nil
}

// Decode parses a frame. Framing is strict: bad magic/version, short bodies
// and trailing bytes all return ErrCorrupt.
func Decode(b []byte) (Entry, error) {
	const hdr = 4 + 1 + 2
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return Entry{}, ErrCorrupt
	}

	off := 5

	ntags := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2

	var tags []string
	if ntags > 0 {
		tags = make([]string, 0, ntags)
	}
	for i := 0; i < ntags; i++ {
		if off+2 > len(b) {
			return Entry{}, ErrCorrupt
		}
		tlen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if tlen <= 0 || tlen > len(b)-off {
			return Entry{}, ErrCorrupt
		}
		tags = append(tags, string(b[off:off+tlen]))
		off += tlen
	}

	if off+8 > len(b) {
		return Entry{}, ErrCorrupt
	}
	created := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	if off+4 > len(b) {
		return Entry{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen > len(b)-off { // overflow-safe bound check
		return Entry{}, ErrCorrupt
	}
	if off+vlen != len(b) { // strict framing: no trailing bytes
		return Entry{}, ErrCorrupt
	}

	return Entry{Created: created, Tags: tags, Payload: b[off : off+vlen]}, nil
}
