package skill

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateStore_PerSessionIsolation(t *testing.T) {
	store := NewStateStore(8)
	a := store.For("a")
	b := store.For("b")

	a.Set("step", "GMAIL_CREDS")
	assert.Equal(t, "GMAIL_CREDS", store.For("a").GetString("step"))
	assert.Equal(t, "", b.GetString("step"))
	assert.Same(t, a, store.For("a"))
}

func TestStateStore_Evicts(t *testing.T) {
	store := NewStateStore(2)
	store.For("a").Set("k", 1)
	store.For("b")
	store.For("c")

	assert.Equal(t, 2, store.Len())
	_, ok := store.For("a").Get("k")
	assert.False(t, ok, "evicted state comes back empty")
}

func TestStateStore_Drop(t *testing.T) {
	store := NewStateStore(0)
	store.For("a").Set("k", "v")
	store.Drop("a")
	assert.Equal(t, "", store.For("a").GetString("k"))
}

func TestState_DeleteAndReset(t *testing.T) {
	st := NewStateStore(1).For("s")
	st.Set("a", 1)
	st.Set("b", 2)
	st.Delete("a")
	_, ok := st.Get("a")
	assert.False(t, ok)

	st.Reset()
	_, ok = st.Get("b")
	assert.False(t, ok)
}

func TestState_ConcurrentAccess(t *testing.T) {
	st := NewStateStore(1).For("s")
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Set("k", i)
			st.Get("k")
		}()
	}
	wg.Wait()
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", SessionFrom(ctx))
	assert.NotNil(t, StateFrom(ctx))

	st := NewStateStore(1).For("s1")
	ctx = WithState(WithSession(ctx, "s1"), st)
	assert.Equal(t, "s1", SessionFrom(ctx))
	assert.Same(t, st, StateFrom(ctx))
}

func TestPickIndices(t *testing.T) {
	ids := []string{"a", "b", "c"}
	picked, good, bad := PickIndices(ids, []int{1, 3, 0, 4})
	assert.Equal(t, []string{"a", "c"}, picked)
	assert.Equal(t, []int{1, 3}, good)
	assert.Equal(t, []int{0, 4}, bad)

	picked, good, bad = PickIndices(nil, []int{1})
	assert.Empty(t, picked)
	assert.Empty(t, good)
	assert.Equal(t, []int{1}, bad)
}

func TestStringSlice(t *testing.T) {
	st := NewStateStore(1).For("s")
	assert.Nil(t, st.StringSlice("ids"))
	st.Set("ids", []string{"x"})
	assert.Equal(t, []string{"x"}, st.StringSlice("ids"))
	st.Set("ids", 42)
	assert.Nil(t, st.StringSlice("ids"))
}
