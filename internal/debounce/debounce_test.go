package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) record(v string) {
	r.mu.Lock()
	r.got = append(r.got, v)
	r.mu.Unlock()
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestPush_CoalescesBurst(t *testing.T) {
	rec := &recorder{}
	d := New(DefaultWait, rec.record)
	defer d.Stop()

	d.Push("a")
	time.Sleep(50 * time.Millisecond)
	d.Push("ab")
	time.Sleep(50 * time.Millisecond)
	d.Push("abc")

	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(DefaultWait + 50*time.Millisecond)
	assert.Equal(t, []string{"abc"}, rec.values())
}

func TestPush_QuietPeriodSplitsCommits(t *testing.T) {
	rec := &recorder{}
	d := New(DefaultWait, rec.record)
	defer d.Stop()

	d.Push("a")
	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, 2*time.Second, 10*time.Millisecond)
	d.Push("ab")
	require.Eventually(t, func() bool { return len(rec.values()) == 2 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"a", "ab"}, rec.values())
}

func TestPush_WaitsFullQuietPeriod(t *testing.T) {
	rec := &recorder{}
	d := New(100*time.Millisecond, rec.record)
	defer d.Stop()

	start := time.Now()
	done := make(chan time.Time, 1)
	d.fn = func(v string) {
		rec.record(v)
		done <- time.Now()
	}
	d.Push("x")

	select {
	case at := <-done:
		assert.GreaterOrEqual(t, at.Sub(start), 100*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("no emission")
	}
}

func TestFlush(t *testing.T) {
	rec := &recorder{}
	d := New(time.Hour, rec.record)
	defer d.Stop()

	d.Flush()
	assert.Empty(t, rec.values(), "nothing pending")

	d.Push("now")
	d.Flush()
	assert.Equal(t, []string{"now"}, rec.values())

	d.Flush()
	assert.Equal(t, []string{"now"}, rec.values(), "flush emits once")
}

func TestStop_DropsPending(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.record)

	d.Push("dropped")
	d.Stop()
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, rec.values())
}

func TestNew_DefaultWait(t *testing.T) {
	d := New(0, func(string) {})
	assert.Equal(t, DefaultWait, d.wait)
}

func TestEmissionsKeepOrderBehindSlowCallback(t *testing.T) {
	rec := &recorder{}
	release := make(chan struct{})
	d := New(20*time.Millisecond, func(v string) {
		rec.record(v)
		if v == "a" {
			<-release
		}
	})
	defer d.Stop()

	d.Push("a")
	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 5*time.Millisecond)

	// "b" fires while "a" is still running and has to wait its turn.
	d.Push("b")
	time.Sleep(60 * time.Millisecond)

	pushed := make(chan struct{})
	go func() {
		d.Push("c")
		close(pushed)
	}()
	time.Sleep(60 * time.Millisecond)

	close(release)
	<-pushed
	require.Eventually(t, func() bool { return len(rec.values()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, rec.values())
}
