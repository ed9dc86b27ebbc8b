package object_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Fwea-Go/remix-exp/pkg/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedLister struct {
	pages   []object.Page
	calls   []string
	failAt  int
	failErr error
}

func (p *pagedLister) ListPage(_ context.Context, _ string, cursor string) (object.Page, error) {
	p.calls = append(p.calls, cursor)
	idx := len(p.calls) - 1
	if p.failErr != nil && idx == p.failAt {
		return object.Page{}, p.failErr
	}
	return p.pages[idx], nil
}

func TestListKeysFollowsCursors(t *testing.T) {
	l := &pagedLister{pages: []object.Page{
		{Keys: []string{"originals/a.mp3", "originals/b.mp3"}, Cursor: "t1"},
		{Keys: []string{"originals/c.mp3", "originals/d.mp3"}, Cursor: "t2"},
		{Keys: []string{"originals/e.mp3", "originals/f.mp3"}},
	}}

	keys, err := object.ListKeys(context.Background(), l, "originals/")
	require.NoError(t, err)
	assert.Len(t, keys, 6)
	assert.Equal(t, []string{"", "t1", "t2"}, l.calls)
}

func TestListKeysFailureIsUnavailable(t *testing.T) {
	l := &pagedLister{
		pages:   []object.Page{{Keys: []string{"a"}, Cursor: "t1"}},
		failAt:  1,
		failErr: errors.New("dial tcp: connection refused"),
	}

	keys, err := object.ListKeys(context.Background(), l, "originals/")
	require.Error(t, err)
	assert.Nil(t, keys, "no partial result on failure")
	assert.ErrorIs(t, err, object.ErrUnavailable)
}

func TestListKeysStuckCursor(t *testing.T) {
	l := &pagedLister{pages: []object.Page{
		{Keys: []string{"a"}, Cursor: "same"},
		{Keys: []string{"b"}, Cursor: "same"},
	}}

	_, err := object.ListKeys(context.Background(), l, "")
	assert.ErrorIs(t, err, object.ErrUnavailable)
}

func TestResolveRange(t *testing.T) {
	cases := []struct {
		name    string
		rng     *object.Range
		size    int64
		want    *object.Range
		wantErr bool
	}{
		{name: "nil", rng: nil, size: 10, want: nil},
		{name: "bounded", rng: &object.Range{Start: 0, End: 99}, size: 1000, want: &object.Range{Start: 0, End: 99}},
		{name: "open", rng: &object.Range{Start: 500, End: -1}, size: 1000, want: &object.Range{Start: 500, End: 999}},
		{name: "clamped", rng: &object.Range{Start: 900, End: 5000}, size: 1000, want: &object.Range{Start: 900, End: 999}},
		{name: "single byte", rng: &object.Range{Start: 0, End: 0}, size: 1000, want: &object.Range{Start: 0, End: 0}},
		{name: "start past end", rng: &object.Range{Start: 1000, End: -1}, size: 1000, wantErr: true},
		{name: "empty object", rng: &object.Range{Start: 0, End: -1}, size: 0, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := object.ResolveRange(tc.rng, tc.size)
			if tc.wantErr {
				assert.ErrorIs(t, err, object.ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "01 - Song.mp3", object.BaseName("originals/01 - Song.mp3"))
	assert.Equal(t, "top.mp3", object.BaseName("top.mp3"))
	assert.True(t, object.IsDirMarker("originals/"))
	assert.False(t, object.IsDirMarker("originals/a.mp3"))
}
