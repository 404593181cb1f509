package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const entryFormatVersion = 1

const flagRevoked byte = 1 << 0

// ErrCorruptEntry is returned when a stored entry cannot be decoded.
var ErrCorruptEntry = errors.New("session: corrupt entry")

// Entry is the registry record for one issued token.
type Entry struct {
	TokenID   string
	AccountID string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Live reports whether the entry still authorizes its token at now.
func (e *Entry) Live(now time.Time) bool {
	return e != nil && !e.Revoked && now.Before(e.ExpiresAt)
}

// Encode serializes e. The token id is the storage key and is not encoded.
//
// Layout: version(1) flags(1) len(account)(1) account issuedAt(8) expiresAt(8),
// timestamps as big-endian Unix nanoseconds.
func Encode(e *Entry) ([]byte, error) {
	if e == nil {
		return nil, errors.New("session: nil entry")
	}
	if e.AccountID == "" {
		return nil, errors.New("session: empty account id")
	}
	if len(e.AccountID) > 255 {
		return nil, errors.New("session: account id too long")
	}

	var buf bytes.Buffer
	buf.Grow(3 + len(e.AccountID) + 16)

	buf.WriteByte(entryFormatVersion)
	var flags byte
	if e.Revoked {
		flags |= flagRevoked
	}
	buf.WriteByte(flags)
	buf.WriteByte(byte(len(e.AccountID)))
	buf.WriteString(e.AccountID)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(e.IssuedAt.UnixNano()))
	buf.Write(ts[:])
	binary.BigEndian.PutUint64(ts[:], uint64(e.ExpiresAt.UnixNano()))
	buf.Write(ts[:])

	return buf.Bytes(), nil
}

// Decode parses an entry produced by [Encode].
func Decode(data []byte) (*Entry, error) {
	if len(data) < 3 {
		return nil, ErrCorruptEntry
	}
	if data[0] != entryFormatVersion {
		return nil, ErrCorruptEntry
	}
	flags := data[1]
	if flags&^flagRevoked != 0 {
		return nil, ErrCorruptEntry
	}

	n := int(data[2])
	if n == 0 || len(data) != 3+n+16 {
		return nil, ErrCorruptEntry
	}
	account := string(data[3 : 3+n])
	rest := data[3+n:]

	issued := int64(binary.BigEndian.Uint64(rest[:8]))
	expires := int64(binary.BigEndian.Uint64(rest[8:16]))

	return &Entry{
		AccountID: account,
		IssuedAt:  time.Unix(0, issued).UTC(),
		ExpiresAt: time.Unix(0, expires).UTC(),
		Revoked:   flags&flagRevoked != 0,
	}, nil
}
