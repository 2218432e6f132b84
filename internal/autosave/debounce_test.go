package autosave_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/msomdec/tempo/internal/autosave"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) get() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

const delay = 30 * time.Millisecond

func TestDebouncer_CommitsAfterQuietPeriod(t *testing.T) {
	var rec recorder[string]
	d := autosave.New("", delay, rec.add)
	defer d.Stop()

	d.Set("a")
	assert.Equal(t, "", d.Value(), "committed value must not change before the delay")
	assert.Equal(t, "a", d.Live())
	assert.True(t, d.Pending())

	require.Eventually(t, func() bool { return d.Value() == "a" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, rec.get())
	assert.False(t, d.Pending())
}

func TestDebouncer_EachChangeRestartsWindow(t *testing.T) {
	var rec recorder[string]
	d := autosave.New("", delay, rec.add)
	defer d.Stop()

	for _, v := range []string{"p", "pu", "pus", "push"} {
		d.Set(v)
		time.Sleep(delay / 3)
	}

	require.Eventually(t, func() bool { return d.Value() == "push" }, time.Second, 5*time.Millisecond)
	// Only the final value is emitted: no leading edge, no intermediate commits.
	assert.Equal(t, []string{"push"}, rec.get())
}

func TestDebouncer_RevertToCommittedDoesNotEmit(t *testing.T) {
	var rec recorder[int]
	d := autosave.New(45, delay, rec.add)
	defer d.Stop()

	d.Set(50)
	d.Set(45)

	time.Sleep(4 * delay)
	assert.Empty(t, rec.get())
	assert.Equal(t, 45, d.Value())
}

func TestDebouncer_StopDropsPendingEdit(t *testing.T) {
	var rec recorder[string]
	d := autosave.New("saved", delay, rec.add)

	d.Set("unsaved")
	d.Stop()

	time.Sleep(4 * delay)
	assert.Empty(t, rec.get(), "stop must not flush the pending value")
	assert.Equal(t, "saved", d.Value())

	d.Set("after stop")
	assert.False(t, d.Pending())
}

func TestGroup_FieldsCommitIndependently(t *testing.T) {
	type commit struct{ key, value string }
	var rec recorder[commit]
	g := autosave.NewGroup(delay, func(k, v string) { rec.add(commit{k, v}) })
	defer g.Stop()

	g.Track("duration", "45")
	g.Track("notes", "")
	assert.True(t, g.Tracked("notes"))
	assert.False(t, g.Set("unknown", "x"))

	require.True(t, g.Set("duration", "60"))
	time.Sleep(delay / 2)
	require.True(t, g.Set("notes", "felt good"))

	require.Eventually(t, func() bool { return len(rec.get()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []commit{{"duration", "60"}, {"notes", "felt good"}}, rec.get())
}

func TestGroup_TrackKeepsExistingField(t *testing.T) {
	var rec recorder[string]
	g := autosave.NewGroup(delay, func(_ string, v string) { rec.add(v) })
	defer g.Stop()

	g.Track("name", "Push")
	g.Set("name", "Push A")
	g.Track("name", "ignored")

	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Push A"}, rec.get())
}

func TestGroup_StopAndForgetCancelWithoutFlush(t *testing.T) {
	var rec recorder[string]
	g := autosave.NewGroup(delay, func(k, _ string) { rec.add(k) })

	g.Track("a", "")
	g.Track("b", "")
	g.Set("a", "1")
	g.Set("b", "1")
	assert.Equal(t, 2, g.Pending())

	g.Forget("a")
	assert.Equal(t, 1, g.Pending())
	g.Stop()
	assert.Equal(t, 0, g.Pending())

	g.Track("c", "")
	assert.False(t, g.Tracked("c"))

	time.Sleep(4 * delay)
	assert.Empty(t, rec.get())
}
