package index

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name    string
		session string
		chunks  []string
		vectors [][]float32
		wantErr bool
	}{
		{"ok", "s1", []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}}, false},
		{"empty index", "s1", nil, nil, false},
		{"missing session", "", []string{"a"}, [][]float32{{1}}, true},
		{"length mismatch", "s1", []string{"a", "b"}, [][]float32{{1, 0}}, true},
		{"dimension mismatch", "s1", []string{"a", "b"}, [][]float32{{1, 0}, {1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Build(tt.session, tt.chunks, tt.vectors)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.chunks), idx.Count())
		})
	}
}

func TestBuild_NormalizesCopies(t *testing.T) {
	vec := []float32{3, 4}
	idx, err := Build("s", []string{"x"}, [][]float32{vec})
	require.NoError(t, err)

	assert.Equal(t, []float32{3, 4}, vec, "input left untouched")
	assert.Equal(t, []int{0}, idx.Search([]float32{0.6, 0.8}, 1))
	assert.Equal(t, 2, idx.Dim())
}

func TestSearch_Ranking(t *testing.T) {
	idx, err := Build("s", []string{"a", "b", "c", "d"}, [][]float32{
		{1, 0},
		{0, 1},
		{0.6, 0.8},
		{0, 1},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query []float32
		k     int
		want  []int
	}{
		{"top one", []float32{1, 0}, 1, []int{0}},
		{"ties keep lower index", []float32{0, 1}, 3, []int{1, 3, 2}},
		{"k clamped to count", []float32{1, 0}, 10, []int{0, 2, 1, 3}},
		{"k zero", []float32{1, 0}, 0, []int{}},
		{"wrong dimension", []float32{1, 0, 0}, 2, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Search(tt.query, tt.k))
		})
	}
}

func TestRegistry_PutReplacesAndSearches(t *testing.T) {
	r := NewRegistry(10, 0)

	first, err := Build("s1", []string{"old"}, [][]float32{{1, 0}})
	require.NoError(t, err)
	r.Put(first)
	assert.Equal(t, 1, r.Count("s1"))

	second, err := Build("s1", []string{"a", "b", "c"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})
	require.NoError(t, err)
	r.Put(second)

	assert.Equal(t, 3, r.Count("s1"))
	assert.Equal(t, []string{"a", "b", "c"}, r.Chunks("s1"))
	got := r.Search("s1", []float32{1, 0}, 5)
	assert.Len(t, got, 3)
	assert.Equal(t, 0, got[0])
}

func TestRegistry_UnknownSession(t *testing.T) {
	r := NewRegistry(0, 0)
	assert.Equal(t, []int{}, r.Search("missing", []float32{1}, 3))
	assert.Zero(t, r.Count("missing"))
	assert.Nil(t, r.Chunks("missing"))
}

func TestRegistry_CapacityEviction(t *testing.T) {
	var evicted []string
	r := NewRegistry(2, 0, WithEvictHook(func(id string) { evicted = append(evicted, id) }))

	for i := 0; i < 3; i++ {
		idx, err := Build(fmt.Sprintf("s%d", i), []string{"x"}, [][]float32{{1}})
		require.NoError(t, err)
		r.Put(idx)
	}

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"s0"}, evicted)
	_, ok := r.Get("s0")
	assert.False(t, ok)
}

func TestRegistry_TTLExpiry(t *testing.T) {
	r := NewRegistry(0, 20*time.Millisecond)
	idx, err := Build("s", []string{"x"}, [][]float32{{1}})
	require.NoError(t, err)
	r.Put(idx)

	assert.Eventually(t, func() bool {
		_, ok := r.Get("s")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(0, 0)
	idx, err := Build("s", []string{"x"}, [][]float32{{1}})
	require.NoError(t, err)
	r.Put(idx)

	assert.True(t, r.Remove("s"))
	assert.False(t, r.Remove("s"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(0, 0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			idx, _ := Build("shared", []string{fmt.Sprint(i)}, [][]float32{{1, 0}})
			r.Put(idx)
		}(i)
		go func() {
			defer wg.Done()
			got := r.Search("shared", []float32{1, 0}, 1)
			assert.LessOrEqual(t, len(got), 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, r.Count("shared"))
}
