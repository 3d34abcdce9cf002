package docctx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id, title string, updated time.Time) Document {
	return Document{ID: id, Title: title, Content: "body of " + id, Type: TypeNote, LastUpdated: updated}
}

func TestContextRoundTrip(t *testing.T) {
	s := New()
	s.Add(Document{ID: "d1", Title: "Standup", Content: "- ship it", Type: TypeMeeting})

	_, ok := s.CurrentContext()
	assert.False(t, ok, "adding must not select")

	s.SetCurrent("d1")
	got := s.GetCurrentContext()
	assert.Equal(t, "Standup (meeting)\n\n- ship it", got)

	c, ok := s.CurrentContext()
	require.True(t, ok)
	assert.Equal(t, "d1", c.Document.ID)

	s.SetCurrent("")
	assert.Empty(t, s.GetCurrentContext())
}

func TestContextAfterRemoval(t *testing.T) {
	s := New()
	s.Add(doc("d1", "Plan", time.Now()))
	s.SetCurrent("d1")
	s.Remove("d1")

	_, ok := s.CurrentContext()
	assert.False(t, ok)
	assert.Equal(t, "d1", s.CurrentID(), "selection is resolved lazily")
}

func TestSetCurrentUnknownID(t *testing.T) {
	s := New()
	s.SetCurrent("ghost")
	assert.Empty(t, s.GetCurrentContext())

	s.Add(doc("ghost", "Late", time.Now()))
	assert.NotEmpty(t, s.GetCurrentContext())
}

func TestPrefixTitlesResolveByID(t *testing.T) {
	s := New()
	s.Add(doc("a", "Plan", time.Now()))
	s.Add(doc("b", "Plan B", time.Now()))
	s.SetCurrent("b")

	c, ok := s.CurrentContext()
	require.True(t, ok)
	assert.Equal(t, "Plan B", c.Document.Title)
}

func TestLookups(t *testing.T) {
	s := New()
	s.Add(doc("x1", "Roadmap", time.Now()))
	s.Add(doc("x2", "roadmap", time.Now()))

	d, ok := s.ByTitle("ROADMAP")
	require.True(t, ok)
	assert.Equal(t, "x1", d.ID)

	_, ok = s.ByID("X1")
	assert.False(t, ok, "id match is case-sensitive")

	_, ok = s.ByTitle("Road")
	assert.False(t, ok, "title match is exact")
}

func TestRemoveAllMatching(t *testing.T) {
	s := New()
	s.Add(doc("dup", "one", time.Now()))
	s.Add(doc("keep", "two", time.Now()))
	s.Add(doc("dup", "three", time.Now()))

	s.Remove("dup")
	s.Remove("missing")

	docs := s.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "keep", docs[0].ID)
}

func TestRecentDocuments(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		s.Add(doc(id, id, base.Add(time.Duration(i)*time.Hour)))
	}

	recent := s.RecentDocuments(0)
	require.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, "g", recent[0].ID)
	assert.Equal(t, "c", recent[4].ID)

	assert.Len(t, s.RecentDocuments(2), 2)
	assert.Len(t, s.RecentDocuments(50), 7)

	docs := s.Documents()
	assert.Equal(t, "a", docs[0].ID, "insertion order is preserved")
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			s.Add(doc(id, id, time.Now()))
			s.SetCurrent(id)
			_ = s.GetCurrentContext()
			_ = s.RecentDocuments(3)
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Documents(), 16)
}

func TestPutReplacesConcurrently(t *testing.T) {
	s := New()
	for round := 0; round < 200; round++ {
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				s.Put(doc("fixed", "v"+string(rune('0'+i)), time.Now()))
			}(i)
		}
		close(start)
		wg.Wait()
		require.Len(t, s.Documents(), 1, "round %d", round)
	}
}

func TestPutKeepsOthers(t *testing.T) {
	s := New()
	s.Add(doc("a", "A", time.Now()))
	s.Add(doc("b", "B", time.Now()))
	s.Put(doc("a", "A2", time.Now()))

	docs := s.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "A2", docs[1].Title)
}

func TestTypeValid(t *testing.T) {
	assert.True(t, TypeMeeting.Valid())
	assert.False(t, Type("memo").Valid())
}
