package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notice_relay/internal/domain"
)

type stubAdapter struct {
	items []RawItem
	err   error
}

func (a stubAdapter) Fetch(context.Context) ([]RawItem, error) {
	return a.items, a.err
}

func (a stubAdapter) Normalize(item RawItem) (domain.Notice, bool) {
	if item.Title == "panic" {
		panic("bad row")
	}
	if item.Title == "" {
		return domain.Notice{}, false
	}
	return domain.Notice{Title: item.Title, Link: item.Link, Published: time.Unix(0, 0)}, true
}

func TestCollect_SkipsMalformed(t *testing.T) {
	a := stubAdapter{items: []RawItem{
		{Title: "one", Link: "https://x/1"},
		{Title: ""},
		{Title: "panic"},
		{Title: "two", Link: "https://x/2"},
	}}

	notices, malformed, err := Collect(context.Background(), "univ", a, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, malformed)
	require.Len(t, notices, 2)
	assert.Equal(t, "univ", notices[0].SourceID)
	assert.Equal(t, "two", notices[1].Title)
}

func TestCollect_FetchError(t *testing.T) {
	fetchErr := &domain.FetchError{SourceID: "univ", Err: errors.New("timeout")}

	_, _, err := Collect(context.Background(), "univ", stubAdapter{err: fetchErr}, testLogger())

	var fe *domain.FetchError
	assert.ErrorAs(t, err, &fe)
}
