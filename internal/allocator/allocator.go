// Package allocator generates the human-readable token numbers handed to
// queue members: a 3-letter queue prefix, an 8-digit date partition, and a
// 3-digit daily sequence, e.g. DOC20250101007.
package allocator

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	prefixLen   = 3
	dateLayout  = "20060102"
	sequenceLen = 3

	// padRune fills in when a queue name is shorter than the prefix. Short
	// names share a padded prefix, which narrows the uniqueness scope but
	// never breaks it: the sequence is still scoped per (prefix, day).
	padRune = 'X'
)

// Prefix derives the 3-character token prefix from a queue name: the first
// three characters upper-cased, padded with 'X' for names under three
// characters.
func Prefix(queueName string) string {
	runes := []rune(strings.ToUpper(strings.TrimSpace(queueName)))
	out := make([]rune, 0, prefixLen)
	for _, r := range runes {
		if len(out) == prefixLen {
			break
		}
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, r)
	}
	for len(out) < prefixLen {
		out = append(out, padRune)
	}
	return string(out)
}

// DatePartition formats the admission instant as the token's 8-digit date
// partition. Callers must capture the instant once and use it for both the
// partition and the sequence read, so a token created at 23:59 and persisted
// at 00:00 is not misfiled.
func DatePartition(when time.Time) string {
	return when.Format(dateLayout)
}

// Format assembles a token number from its parts.
func Format(prefix, datePart string, sequence int) string {
	return fmt.Sprintf("%s%s%0*d", prefix, datePart, sequenceLen, sequence)
}

// Number builds the token number for a queue at the given admission instant
// and daily sequence.
func Number(queueName string, when time.Time, sequence int) string {
	return Format(Prefix(queueName), DatePartition(when), sequence)
}

// Parsed is a token number split into its parts.
type Parsed struct {
	Prefix   string
	DatePart string
	Sequence int
}

// Parse splits a token number into prefix, date partition and sequence.
func Parse(number string) (Parsed, error) {
	if len(number) != prefixLen+len(dateLayout)+sequenceLen {
		return Parsed{}, fmt.Errorf("malformed token number %q", number)
	}
	seqPart := number[prefixLen+len(dateLayout):]
	seq, err := strconv.Atoi(seqPart)
	if err != nil {
		return Parsed{}, fmt.Errorf("malformed token sequence %q: %w", seqPart, err)
	}
	datePart := number[prefixLen : prefixLen+len(dateLayout)]
	if _, err := time.Parse(dateLayout, datePart); err != nil {
		return Parsed{}, fmt.Errorf("malformed token date %q: %w", datePart, err)
	}
	return Parsed{
		Prefix:   number[:prefixLen],
		DatePart: datePart,
		Sequence: seq,
	}, nil
}
