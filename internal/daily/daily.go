// internal/daily/daily.go
//
// Deterministic opponent stream for the "daily" mode.
// Every session started on the same UTC date with the same salt faces the
// same sequence of opponent moves. Pick k is drawn from
// HKDF-SHA256(secret=salt, info="<date>|<k>") with rejection sampling, so the
// stream stays uniform and can be resumed from any offset.
package daily

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"time"

	"golang.org/x/crypto/hkdf"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Source implements game.Source for one date.
type Source struct {
	date   string
	salt   []byte
	offset uint64
}

// NewSource resumes the stream for date at offset (the number of picks
// already drawn).
func NewSource(date, salt string, offset uint64) *Source {
	return &Source{date: date, salt: []byte(salt), offset: offset}
}

// Offset is the number of picks drawn so far; persist it to resume later.
func (s *Source) Offset() uint64 { return s.offset }

// Date is the date key the stream is bound to.
func (s *Source) Date() string { return s.date }

// IntN returns pick number Offset() in [0, n) and advances the stream.
func (s *Source) IntN(n int) int {
	if n <= 0 {
		panic("daily: IntN called with n <= 0")
	}
	v := pick(s.salt, s.date, s.offset, uint64(n))
	s.offset++
	return int(v)
}

// pick derives the k-th value. Values at or above the largest multiple of n
// are discarded so every residue is equally likely.
func pick(salt []byte, date string, k, n uint64) uint64 {
	info := []byte(date + "|" + strconv.FormatUint(k, 10))
	r := hkdf.New(sha256.New, salt, nil, info)
	limit := math.MaxUint64 - math.MaxUint64%n
	var buf [8]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			// HKDF output is exhausted after 255 blocks; the odds of
			// rejecting that many draws are nil for n <= MaxUint32.
			return 0
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return v % n
		}
	}
}
