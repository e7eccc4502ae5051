package recipient

import (
	"encoding/csv"
	"errors"
	"io"
	"net/mail"
	"strconv"
	"strings"
)

// ErrNoRecipients is returned when resolution yields no valid addresses.
var ErrNoRecipients = errors.New("no valid recipient email addresses found")

// Resolved is one addressable recipient with optional personalization fields.
type Resolved struct {
	Email  string
	Fields map[string]string // placeholder key -> substitution value; nil for typed input
}

// ValidAddress reports whether s is a bare, syntactically valid email address.
// Addresses with display names ("Jo <jo@x.com>") are rejected.
func ValidAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// ResolveText turns free-text input into recipients.
// The input is split on any mix of commas and newline sequences; tokens are
// trimmed, empties dropped, and invalid addresses discarded. Order is
// preserved and duplicates pass through.
// PRE: raw is the unparsed textarea content
// POST: Returns at least one recipient, or ErrNoRecipients
func ResolveText(raw string) ([]Resolved, error) {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	var out []Resolved
	for _, tok := range tokens {
		addr := strings.TrimSpace(tok)
		if addr == "" || !ValidAddress(addr) {
			continue
		}
		out = append(out, Resolved{Email: addr})
	}

	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

// ResolveCSV turns an uploaded delimited file into recipients.
// The first column of each row is the candidate address; rows whose address
// fails validation are skipped silently. Any extra columns become
// personalization fields keyed column1..columnN with their raw values.
// PRE: r is a CSV stream without a header row
// POST: Returns at least one recipient, or ErrNoRecipients
func ResolveCSV(r io.Reader) ([]Resolved, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Resolved
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row; skip it like the rest of the invalid rows.
			continue
		}
		if len(row) == 0 {
			continue
		}

		addr := strings.TrimSpace(row[0])
		if addr == "" || !ValidAddress(addr) {
			continue
		}

		var fields map[string]string
		if len(row) > 1 {
			fields = make(map[string]string, len(row)-1)
			for i, col := range row[1:] {
				fields["column"+strconv.Itoa(i+1)] = col
			}
		}
		out = append(out, Resolved{Email: addr, Fields: fields})
	}

	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

// CountDuplicates returns how many resolved addresses are repeats of an
// earlier entry. Duplicates are still delivered; callers may want to log
// the count.
func CountDuplicates(recipients []Resolved) int {
	seen := make(map[string]bool, len(recipients))
	dups := 0
	for _, r := range recipients {
		if seen[r.Email] {
			dups++
			continue
		}
		seen[r.Email] = true
	}
	return dups
}
