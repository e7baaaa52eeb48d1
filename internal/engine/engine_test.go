package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/mention-index/config"
	internalErrors "github.com/gcbaptista/mention-index/internal/errors"
	"github.com/gcbaptista/mention-index/internal/search"
	testutil "github.com/gcbaptista/mention-index/internal/testing"
	"github.com/gcbaptista/mention-index/model"
	"github.com/gcbaptista/mention-index/services"
	"github.com/gcbaptista/mention-index/store"
)

// --- Test Helpers ---

type recordingObserver struct {
	mu     sync.Mutex
	events []model.QueryEvent
}

func (o *recordingObserver) ObserveQuery(event model.QueryEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) Events() []model.QueryEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.QueryEvent(nil), o.events...)
}

type panickingRanker struct{}

func (panickingRanker) Rank(services.RankQuery) services.RankOutcome {
	panic("ranker failure")
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.CandidateStore) {
	t.Helper()
	s := store.NewCandidateStore()
	ranker, err := search.NewService(s, config.DefaultRanking())
	require.NoError(t, err)
	return New(s, ranker, opts...), s
}

// startEngine runs eng in the background until the test ends
func startEngine(t *testing.T, eng *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})
}

// --- Test Cases ---

func TestEngine_LoadPatchQuery(t *testing.T) {
	eng, _ := newTestEngine(t)
	startEngine(t, eng)
	ctx := context.Background()

	loaded, err := eng.Load(ctx, testutil.ProjectCandidates())
	require.NoError(t, err)
	assert.Equal(t, len(testutil.ProjectCandidates()), loaded.Total)

	result, err := eng.Query(ctx, "index", 2)
	require.NoError(t, err)
	assert.Equal(t, "index", result.Query)
	assert.Equal(t, []string{"src/index.ts", "src/index.test.ts"}, testutil.Rels(result.Items))

	patched, err := eng.Patch(ctx,
		[]model.Candidate{testutil.File("index.go"), testutil.File("src/index.ts")},
		[]model.Candidate{testutil.File("src/index.test.ts"), testutil.File("missing.go")},
	)
	require.NoError(t, err)
	assert.Equal(t, model.PatchResult{AddsApplied: 1, RemovesApplied: 1, Total: loaded.Total}, patched)

	result, err = eng.Query(ctx, "index", 0)
	require.NoError(t, err)
	assert.Equal(t, "index.go", result.Items[0].Rel)
	assert.Equal(t, -1, testutil.IndexOf(result.Items, "src/index.test.ts", false), "removed candidates never come back")

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StoreStateLoaded, stats.State)
	assert.Equal(t, loaded.Total, stats.Total)
	assert.False(t, stats.NeedsRebuild, "the query materialized the view")
}

func TestEngine_SubmitEchoesID(t *testing.T) {
	eng, _ := newTestEngine(t)
	startEngine(t, eng)

	resp, ok, err := eng.Submit(context.Background(), model.Request{Type: model.MessageTypeQuery, ID: "q-7", Query: "x"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.MessageTypeQuery, resp.Type)
	assert.Equal(t, "q-7", resp.ID)
	require.NotNil(t, resp.QueryResult)
	assert.Empty(t, resp.QueryResult.Items)
}

func TestEngine_UnknownTypeHasNoResponse(t *testing.T) {
	eng, s := newTestEngine(t)
	startEngine(t, eng)

	resp, ok, err := eng.Submit(context.Background(), model.Request{Type: "reindex"})
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, model.Response{}, resp)
	assert.Zero(t, eng.Metrics().MessagesProcessed)
	assert.Equal(t, model.StoreStateUninitialized, s.Stats().State)
}

func TestEngine_MalformedLoadResetsStore(t *testing.T) {
	eng, _ := newTestEngine(t)
	startEngine(t, eng)
	ctx := context.Background()

	_, err := eng.Load(ctx, testutil.ProjectCandidates())
	require.NoError(t, err)

	resp, ok, err := eng.Submit(ctx, model.Request{Type: model.MessageTypeLoad, Malformed: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, resp.LoadResult.Total)

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StoreStateFailed, stats.State)
	assert.Zero(t, stats.Total)

	result, err := eng.Query(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestEngine_PatchBeforeLoad(t *testing.T) {
	eng, _ := newTestEngine(t)
	startEngine(t, eng)
	ctx := context.Background()

	patched, err := eng.Patch(ctx, []model.Candidate{testutil.File("early.go")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, patched.AddsApplied)

	loaded, err := eng.Load(ctx, []model.Candidate{testutil.File("a.go")})
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Total, "a load replaces anything patched before it")
}

func TestEngine_StoppedEngineRejectsRequests(t *testing.T) {
	eng, _ := newTestEngine(t)
	done := make(chan error, 1)
	go func() { done <- eng.Run(context.Background()) }()

	_, err := eng.Stats(context.Background())
	require.NoError(t, err)

	eng.Stop()
	require.NoError(t, <-done)
	assert.True(t, eng.Stopped())

	_, err = eng.Query(context.Background(), "x", 0)
	assert.ErrorIs(t, err, internalErrors.ErrEngineStopped)

	// Stop is idempotent
	assert.NotPanics(t, eng.Stop)
}

func TestEngine_RunTwice(t *testing.T) {
	eng, _ := newTestEngine(t)
	startEngine(t, eng)

	require.Eventually(t, func() bool { return eng.running.Load() }, time.Second, time.Millisecond)
	assert.Error(t, eng.Run(context.Background()))
}

func TestEngine_CancelledBeforeDequeue(t *testing.T) {
	eng, s := newTestEngine(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Load(cancelled, testutil.ProjectCandidates())
	assert.ErrorIs(t, err, context.Canceled)

	// The engine is not running yet, so this request waits in the queue until its deadline
	timeout, cancelTimeout := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelTimeout()
	_, err = eng.Load(timeout, testutil.ProjectCandidates())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	startEngine(t, eng)
	stats, err := eng.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StoreStateUninitialized, stats.State, "abandoned requests are never applied")
	assert.Zero(t, s.Len())
	assert.Equal(t, int64(1), eng.Metrics().MessagesCancelled)
}

func TestEngine_PanicIsContained(t *testing.T) {
	s := store.NewCandidateStore()
	eng := New(s, panickingRanker{})
	startEngine(t, eng)
	ctx := context.Background()

	_, err := eng.Load(ctx, []model.Candidate{testutil.File("a.go")})
	require.NoError(t, err)

	result, err := eng.Query(ctx, "a", 0)
	require.NoError(t, err, "a failing handler still produces a response")
	assert.Equal(t, "a", result.Query)
	assert.Empty(t, result.Items)

	stats, err := eng.Stats(ctx)
	require.NoError(t, err, "the loop keeps running after a panic")
	assert.Equal(t, 1, stats.Total)

	metrics := eng.Metrics()
	assert.Equal(t, int64(1), metrics.MessagesFailed)
	assert.Equal(t, int64(3), metrics.MessagesProcessed)
}

func TestEngine_ObserverReceivesQueries(t *testing.T) {
	observer := &recordingObserver{}
	eng, _ := newTestEngine(t, WithObserver(observer))
	startEngine(t, eng)
	ctx := context.Background()

	_, err := eng.Load(ctx, testutil.ProjectCandidates())
	require.NoError(t, err)
	_, err = eng.Query(ctx, "readme", 1)
	require.NoError(t, err)
	_, err = eng.Query(ctx, "readme", 1)
	require.NoError(t, err)

	events := observer.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "readme", events[0].Query)
	assert.Equal(t, 1, events[0].Limit)
	assert.Equal(t, 1, events[0].ResultCount)
	assert.False(t, events[0].Cached)
	assert.True(t, events[1].Cached, "the repeated query is served from the cache")
}

func TestEngine_ConcurrentSubmitters(t *testing.T) {
	eng, _ := newTestEngine(t, WithQueueSize(4))
	startEngine(t, eng)
	ctx := context.Background()

	_, err := eng.Load(ctx, testutil.GeneratedCandidates(100))
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := eng.Patch(ctx, []model.Candidate{testutil.File(fmt.Sprintf("added/%d.go", i))}, nil)
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			result, err := eng.Query(ctx, "file", 50)
			assert.NoError(t, err)
			testutil.AssertNoDuplicates(t, result.Items)
		}()
	}
	wg.Wait()

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100+writers, stats.Total)

	metrics := eng.Metrics()
	assert.Equal(t, int64(writers), metrics.MessagesByType[model.MessageTypePatch])
	assert.Equal(t, int64(writers), metrics.MessagesByType[model.MessageTypeQuery])
	assert.Zero(t, metrics.QueueDepth)
}
