package recordstore

import (
	"sort"
	"strconv"
)

// IDField is the identifier column every collection carries.
const IDField = "id"

// Record is one stored row: field name to cell text.
type Record map[string]string

// ID returns the parsed identifier, or 0 when absent or malformed.
func (r Record) ID() int {
	id, ok := parseID(r[IDField])
	if !ok {
		return 0
	}
	return id
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// row lays r out in header order. Missing fields become empty cells.
func (r Record) row(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = r[h]
	}
	return out
}

// fromRow zips a header with a row. Cells past the header are ignored and
// a short row reads as empty strings.
func fromRow(header, cells []string) Record {
	rec := make(Record, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		if i < len(cells) {
			rec[h] = cells[i]
		} else {
			rec[h] = ""
		}
	}
	return rec
}

// headerFromRecord derives a header from a record's own keys: id first, the
// rest sorted.
func headerFromRecord(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k != IDField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return append([]string{IDField}, keys...)
}

// parseID accepts "7" and the "7.0" form spreadsheets sometimes hand back.
func parseID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

func isBlank(header []string) bool {
	for _, h := range header {
		if h != "" {
			return false
		}
	}
	return true
}
