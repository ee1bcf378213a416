package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRegistry_AddGet(t *testing.T) {
	r := NewRegistry()
	s := NewGameSession("s1", testPuzzle("CAT"), time.Now())
	r.Add(s)

	reg, ok := r.Get("s1")
	require.True(t, ok)
	assert.Same(t, s, reg)

	gs, ok := r.Game("s1")
	require.True(t, ok)
	assert.Same(t, s, gs)

	_, ok = r.Listener("s1")
	assert.False(t, ok)

	_, ok = r.Get("unknown")
	assert.False(t, ok)
}

func TestRegistry_AddOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Add(NewGameSession("s1", testPuzzle("CAT"), time.Now()))
	replacement := NewGameSession("s1", testPuzzle("DOG"), time.Now())
	r.Add(replacement)

	gs, ok := r.Game("s1")
	require.True(t, ok)
	assert.Same(t, replacement, gs)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Update(t *testing.T) {
	r := NewRegistry()
	s := NewGameSession("s1", testPuzzle("CAT", "DOG"), time.Now())
	r.Add(s)

	next, ok := s.Guess("CAT")
	require.True(t, ok)
	r.Update(next)

	gs, _ := r.Game("s1")
	assert.Equal(t, 1, gs.Remaining())
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	l := NewListenerChannel("l1", &recordingNotifier{}, time.Now())
	r.Add(l)

	removed, ok := r.Remove("l1")
	require.True(t, ok)
	assert.Same(t, l, removed)

	_, ok = r.Get("l1")
	assert.False(t, ok)

	_, ok = r.Remove("l1")
	assert.False(t, ok, "removing an absent id is a no-op")
}

func TestRegistry_RemoveListener(t *testing.T) {
	r := NewRegistry()
	r.Add(NewGameSession("s1", testPuzzle("CAT"), time.Now()))
	l := NewListenerChannel("l1", &recordingNotifier{}, time.Now())
	r.Add(l)

	_, ok := r.RemoveListener("s1")
	assert.False(t, ok)
	_, ok = r.Game("s1")
	assert.True(t, ok, "game session must survive RemoveListener")

	removed, ok := r.RemoveListener("l1")
	require.True(t, ok)
	assert.Same(t, l, removed)
	assert.Equal(t, 1, r.Len())

	_, ok = r.RemoveListener("l1")
	assert.False(t, ok)
}

func TestRegistry_ListIDsAndCounts(t *testing.T) {
	r := NewRegistry()
	r.Add(NewGameSession("s1", testPuzzle("CAT"), time.Now()))
	r.Add(NewGameSession("s2", testPuzzle("CAT"), time.Now()))
	r.Add(NewListenerChannel("l1", &recordingNotifier{}, time.Now()))

	assert.ElementsMatch(t, []string{"s1", "s2", "l1"}, r.ListIDs())
	games, listeners := r.Counts()
	assert.Equal(t, 2, games)
	assert.Equal(t, 1, listeners)
}

func TestRegistry_ConcurrentAddRemove(t *testing.T) {
	r := NewRegistry()
	const n = 100
	var wg sync.WaitGroup

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			r.Add(NewGameSession(fmt.Sprintf("s%d", i), testPuzzle("CAT"), time.Now()))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n, r.Len())

	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, _ = r.Remove(fmt.Sprintf("s%d", i))
		}(i)
		go func() {
			defer wg.Done()
			_ = r.ListIDs()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}

// Remove followed by Get yields absent regardless of concurrent activity on other ids.
func TestRegistry_RemoveThenGetUnderContention(t *testing.T) {
	r := NewRegistry()
	const n = 50
	var wg sync.WaitGroup

	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			id := fmt.Sprintf("other%d", i%10)
			r.Add(NewGameSession(id, testPuzzle("CAT"), time.Now()))
			_, _ = r.Remove(id)
		}
	}()

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("s%d", i)
		r.Add(NewGameSession(id, testPuzzle("CAT"), time.Now()))
		_, _ = r.Remove(id)
		_, ok := r.Get(id)
		assert.False(t, ok, "id %s still present after remove", id)
	}
	close(stop)
	wg.Wait()
}

// Property: the registry behaves like a map under any sequence of operations.
func TestPropertyRegistryMatchesModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry()
		model := map[string]bool{}
		ops := rapid.IntRange(1, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			id := fmt.Sprintf("id%d", rapid.IntRange(0, 8).Draw(t, "id"))
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				r.Add(NewGameSession(id, testPuzzle("CAT"), time.Now()))
				model[id] = true
			case 1:
				r.Update(NewListenerChannel(id, &recordingNotifier{}, time.Now()))
				model[id] = true
			case 2:
				_, _ = r.Remove(id)
				delete(model, id)
			}
			if _, ok := r.Get(id); ok != model[id] {
				t.Fatalf("Get(%s) = %v, model says %v", id, ok, model[id])
			}
		}
		if r.Len() != len(model) {
			t.Fatalf("Len %d != model %d", r.Len(), len(model))
		}
	})
}
