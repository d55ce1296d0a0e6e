package tabular

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{1: "A", 2: "B", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ", 703: "AAA"}
	for col, want := range cases {
		assert.Equal(t, want, ColumnLetter(col), "column %d", col)
	}
}

func TestA1Helpers(t *testing.T) {
	assert.Equal(t, "'Orders'!1:1", a1("Orders", "1:1"))
	assert.Equal(t, "'Bob''s'!A1", a1("Bob's", "A1"))
	assert.Equal(t, "'Orders'!A5:G5", rowRange("Orders", 5, 7))
	assert.Equal(t, "'Orders'!A2:A2", rowRange("Orders", 2, 0))
}

func TestCellsToStrings(t *testing.T) {
	got := cellsToStrings([]interface{}{"x", 4.5, float64(3), true, nil})
	assert.Equal(t, []string{"x", "4.5", "3", "true", ""}, got)
}

func TestSheetsErr(t *testing.T) {
	stale := &googleapi.Error{Code: http.StatusBadRequest, Message: "Unable to parse range: 'Orders'!1:1"}
	assert.ErrorIs(t, sheetsErr("read", stale), ErrStaleHandle)
	assert.NotErrorIs(t, sheetsErr("read", stale), ErrUnavailable)

	gone := &googleapi.Error{Code: http.StatusBadRequest, Message: "No grid with id: 12"}
	assert.ErrorIs(t, sheetsErr("delete", gone), ErrStaleHandle)

	quota := &googleapi.Error{Code: http.StatusTooManyRequests, Message: "Quota exceeded"}
	err := sheetsErr("append", quota)
	assert.ErrorIs(t, err, ErrUnavailable)

	var gerr *googleapi.Error
	assert.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusTooManyRequests, gerr.Code)
}
