package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled() *Session {
	s := New()
	s.Set(CompanyID, "1")
	s.Set(WorkspaceID, "10")
	s.Set(Name, "Apollo")
	s.Set(Code, "AP01")
	s.Set(StartDate, "2026-01-15")
	s.Set(EndDate, "2026-01-20")
	return s
}

func TestMissing_OnlyEndDate(t *testing.T) {
	s := filled()
	s.Set(EndDate, "")
	assert.Equal(t, []Field{EndDate}, s.Missing())
}

func TestMissing_AllInOrder(t *testing.T) {
	assert.Equal(t, Required, New().Missing())
}

func TestInFlow(t *testing.T) {
	assert.False(t, New().InFlow())

	s := New()
	s.Set(Description, "notes only")
	assert.False(t, s.InFlow())

	s.Set(WorkspaceID, "ABC")
	assert.True(t, s.InFlow())

	p := New()
	p.PendingConfirmation = true
	assert.True(t, p.InFlow())
}

func TestSnapshot(t *testing.T) {
	s := filled()
	snap := s.Snapshot()
	assert.Equal(t, "Apollo", snap["name"])
	assert.NotContains(t, snap, PendingConfirmationKey)

	s.PendingConfirmation = true
	assert.Equal(t, true, s.Snapshot()[PendingConfirmationKey])
}

func TestSetEmptyUnsets(t *testing.T) {
	s := filled()
	s.Set(Name, "")
	assert.False(t, s.Has(Name))
	assert.NotContains(t, s.Snapshot(), "name")
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save("tok", filled()))

	got := store.Get("tok")
	got.Set(Name, "Changed")
	assert.Equal(t, "Apollo", store.Get("tok").Get(Name))
}

func TestMemoryStore_EmptyTokenIsNeverStored(t *testing.T) {
	store := NewMemoryStore()
	assert.ErrorIs(t, store.Save("", filled()), ErrNoToken)
	assert.True(t, store.Get("").IsEmpty())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_SaveEmptyDeletes(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save("tok", filled()))
	require.NoError(t, store.Save("tok", New()))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save("a", filled()))
	require.NoError(t, store.Save("b", filled()))
	store.Clear("a")
	assert.True(t, store.Get("a").IsEmpty())
	assert.False(t, store.Get("b").IsEmpty())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_LockSerializesSameToken(t *testing.T) {
	store := NewMemoryStore()
	const turns = 50

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.Lock("tok")
			defer unlock()

			s := store.Get("tok")
			time.Sleep(time.Microsecond)
			s.Set(Description, s.Get(Description)+"x")
			_ = store.Save("tok", s)
		}()
	}
	wg.Wait()

	assert.Len(t, store.Get("tok").Get(Description), turns)
	assert.Equal(t, 0, store.locks.size())
}

func TestMemoryStore_LockDoesNotBlockOtherTokens(t *testing.T) {
	store := NewMemoryStore()
	unlockA := store.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := store.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}

func TestMemoryStore_UnlockIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	unlock := store.Lock("tok")
	unlock()
	unlock()
	assert.Equal(t, 0, store.locks.size())
}
