package persist

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/store"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(40*time.Millisecond, func(string) { calls.Add(1) })

	for i := 0; i < 10; i++ {
		d.Touch("notes")
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int32(0), calls.Load())
	assert.True(t, d.Pending("notes"))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending("notes"))
}

func TestDebouncerFlushAndStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(time.Hour, func(string) { calls.Add(1) })

	d.Touch("notes")
	d.Touch("todos")
	d.Flush()
	assert.Equal(t, int32(2), calls.Load())

	d.Stop()
	d.Touch("notes")
	d.Flush()
	assert.Equal(t, int32(2), calls.Load())
}

func TestTypingProducesSingleWrite(t *testing.T) {
	backend := newCountingKV()
	a, st := newAdapter(t, backend, WithDebounce(50*time.Millisecond))

	note, err := st.AddNote("draft", "h")
	require.NoError(t, err)

	text := "h"
	for _, ch := range "ello world" {
		text += string(ch)
		content := text
		_, err := st.Update(domain.KindNotes, note.ID, store.Patch{Content: &content})
		require.NoError(t, err)
		a.Touch(domain.KindNotes)
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, 0, backend.count("notes"))
	assert.Eventually(t, func() bool { return backend.count("notes") == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, backend.count("notes"))

	res, err := a.Load(t.Context(), domain.KindNotes)
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Items.([]domain.Note)[0].Content)
}
