package feed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinel_TriggersWhenVisible(t *testing.T) {
	f, ff := newTestFeed(t)
	f.Load(nil)
	answer(t, f, ff.next(t), 1, 3, 1, 2)

	s := NewSentinel(f)
	t.Cleanup(s.Close)

	s.SetVisible(true)
	c := ff.next(t)
	assert.Equal(t, 2, c.page)
	assert.False(t, s.Armed())

	// Still visible while loading: no second request.
	s.SetVisible(true)
	ff.none(t)

	// New content re-arms the trigger; it is still on screen, so page 3 follows.
	c.reply <- fetchReply{page: Page[item]{Items: items(3), ServerPage: 2, TotalPages: 3}}
	c = ff.next(t)
	assert.Equal(t, 3, c.page)
	answer(t, f, c, 3, 3, 4)

	assert.False(t, f.State().HasMore)
	ff.none(t)
}

func TestSentinel_OffscreenDoesNothing(t *testing.T) {
	f, ff := newTestFeed(t)
	f.Load(nil)
	answer(t, f, ff.next(t), 1, 3, 1)

	s := NewSentinel(f)
	t.Cleanup(s.Close)

	s.SetVisible(false)
	ff.none(t)
	assert.True(t, s.Armed())
}

func TestSentinel_NoRearmAfterFailure(t *testing.T) {
	f, ff := newTestFeed(t)
	f.Load(nil)
	answer(t, f, ff.next(t), 1, 3, 1)

	s := NewSentinel(f)
	t.Cleanup(s.Close)

	s.SetVisible(true)
	c := ff.next(t)
	c.reply <- fetchReply{err: errors.New("timeout")}
	f.Wait()

	require.Error(t, f.State().Err)
	ff.none(t)
	assert.False(t, s.Armed())

	// A manual retry succeeds and re-arms the trigger.
	require.True(t, f.RequestMore())
	c = ff.next(t)
	answer(t, f, c, 2, 2, 2)
	assert.True(t, s.Armed())
}
