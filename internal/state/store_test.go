package state

import (
	"testing"

	"Unbewohnte/TheTruth/internal/source"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginRejectsSecondSubmission(t *testing.T) {
	store := NewStore(New(source.German))

	snapshot, err := store.Begin(Verifying)
	require.NoError(t, err)
	assert.True(t, snapshot.Busy)
	assert.Equal(t, Verifying, snapshot.Phase)

	_, err = store.Begin(LoadingFeed)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrBusy))
	assert.Equal(t, Verifying, store.Snapshot().Phase)

	result := source.NewVerificationResult(source.NewClaim("claim", "general", "de"))
	store.Apply(func(s State) State { return Verified(s, result) })

	snapshot = store.Snapshot()
	assert.False(t, snapshot.Busy)
	assert.Equal(t, Idle, snapshot.Phase)
	assert.Equal(t, "claim", snapshot.Claim)

	_, err = store.Begin(LoadingFeed)
	assert.NoError(t, err)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	store := NewStore(New(source.English))
	updates, unsubscribe := store.Subscribe()

	_, err := store.Begin(AnalyzingImage)
	require.NoError(t, err)
	store.Apply(func(s State) State { return ImageAnalyzed(s, "a.png", "report") })

	first := <-updates
	assert.True(t, first.Busy)
	second := <-updates
	assert.Equal(t, "report", second.ImageReport)

	unsubscribe()
	_, open := <-updates
	assert.False(t, open)

	// no panic publishing after unsubscribe
	store.Apply(func(s State) State { return WithCategory(s, source.CategoryScience) })
	unsubscribe()
}

func TestSlowSubscriberKeepsLatest(t *testing.T) {
	store := NewStore(New(source.German))
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	for i := 0; i < 20; i++ {
		store.Apply(func(s State) State { return FeedLoaded(s, "de_all", s.FeedOffset, []source.Item{{Title: "x"}}) })
	}

	var last State
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, 20, last.FeedOffset)
}

func TestFeedLoadedPaging(t *testing.T) {
	s := New(source.German)

	s = FeedLoaded(s, "de_all", 0, []source.Item{{Title: "a"}, {Title: "b"}})
	assert.Len(t, s.Feed, 2)
	assert.Equal(t, 2, s.FeedOffset)

	s = FeedLoaded(s, "de_all", 2, []source.Item{{Title: "c"}})
	assert.Len(t, s.Feed, 3)
	assert.Equal(t, 3, s.FeedOffset)

	s = FeedLoaded(s, "nyt", 3, []source.Item{{Title: "d"}})
	assert.Len(t, s.Feed, 1)
	assert.Equal(t, "nyt", s.FeedSource)
}

func TestFailedClearsBusy(t *testing.T) {
	s := Started(New(source.German), DeepScanning)
	s = Failed(s, "boom")

	assert.False(t, s.Busy)
	assert.Equal(t, "boom", s.Error)

	s = Started(s, Verifying)
	assert.Empty(t, s.Error)
}

func TestWithLanguage(t *testing.T) {
	s := WithLanguage(New(source.German), source.English)
	assert.Equal(t, source.English, s.Language)
}
