package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fakeSource struct {
	snap  *Snapshot
	err   error
	calls atomic.Int32
}

func (f *fakeSource) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

type fakeLooker struct {
	records map[string]Record
	errs    map[string]error
}

func (f *fakeLooker) Lookup(ctx context.Context, name string) (Record, error) {
	if err := f.errs[name]; err != nil {
		return Record{}, err
	}
	return f.records[name], nil
}

func TestUpdateOnce_Success(t *testing.T) {
	holder := NewHolder()
	src := &fakeSource{snap: &Snapshot{
		Records:     map[string]Record{"foo.eth": {Name: "foo.eth"}},
		LastUpdated: time.Now(),
	}}

	require.NoError(t, updateOnce(context.Background(), time.Second, src, holder))

	_, ok := holder.Lookup("foo.eth")
	assert.True(t, ok)
}

func TestUpdateOnce_ErrorKeepsPrevious(t *testing.T) {
	holder := NewHolder()
	prev := holder.Get()

	err := updateOnce(context.Background(), time.Second, &fakeSource{err: errors.New("rpc down")}, holder)
	require.Error(t, err)
	assert.Same(t, prev, holder.Get())
}

func TestCalcBackoff_Bounds(t *testing.T) {
	for failures := 1; failures <= 12; failures++ {
		got := calcBackoff(time.Second, time.Minute, failures)
		assert.LessOrEqual(t, got, time.Minute+time.Minute/5, "failures=%d", failures)
		assert.GreaterOrEqual(t, got, time.Second-time.Second/5, "failures=%d", failures)
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	holder := NewHolder()
	src := &fakeSource{snap: &Snapshot{Records: map[string]Record{}, LastUpdated: time.Now()}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, Config{Interval: 10 * time.Millisecond}, src, holder, zap.NewNop())
	}()

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.False(t, holder.Get().LastUpdated.IsZero())
}

func TestStart_DisabledInterval(t *testing.T) {
	err := Start(context.Background(), Config{}, &fakeSource{}, NewHolder(), zap.NewNop())
	assert.NoError(t, err)
}

func TestWatcher_PartialFailure(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w := NewWatcher(&fakeLooker{
		records: map[string]Record{"foo.eth": {Name: "foo.eth", Owner: testOwner}},
		errs:    map[string]error{"bar.eth": errors.New("execution reverted")},
	}, []string{"foo.eth", "bar.eth"})
	w.now = func() time.Time { return now }

	snap, err := w.FetchSnapshot(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap.Records, 1)
	assert.Equal(t, "execution reverted", snap.Failed["bar.eth"])
	assert.Equal(t, now, snap.LastUpdated)
}

func TestWatcher_AllFailed(t *testing.T) {
	w := NewWatcher(&fakeLooker{
		errs: map[string]error{"foo.eth": errors.New("boom")},
	}, []string{"foo.eth"})

	_, err := w.FetchSnapshot(context.Background())
	assert.ErrorIs(t, err, errAllFailed)
}

func TestWatcher_AgainstClient(t *testing.T) {
	chain := newFakeChain()
	c, enc := newTestClient(chain, Options{})
	chain.register(enc, "foo.eth", testAccount, nil)

	snap, err := NewWatcher(c, []string{"foo.eth"}).FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAccount, snap.Records["foo.eth"].Address)
}
