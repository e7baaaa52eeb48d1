// Package engine serializes every load, patch and query against the candidate store.
//
// The store and the ranker are not safe for concurrent use, so the Engine owns them from a
// single goroutine (Run) and callers hand requests over a channel. A request is processed
// to completion before the next one is dequeued; a query never observes a half-applied
// mutation.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	internalErrors "github.com/gcbaptista/mention-index/internal/errors"
	"github.com/gcbaptista/mention-index/internal/logging"
	"github.com/gcbaptista/mention-index/model"
	"github.com/gcbaptista/mention-index/services"
)

const defaultQueueSize = 64

// Request lifecycle, guarded by an atomic so a caller can only abandon a request the
// loop has not taken yet.
const (
	requestQueued int32 = iota
	requestTaken
	requestAbandoned
)

type request struct {
	ctx   context.Context
	req   model.Request
	state atomic.Int32
	reply chan model.Response // buffered, written at most once
}

// Engine processes requests one at a time.
// It implements the services.Dispatcher interface.
type Engine struct {
	repo     services.CandidateRepository
	ranker   services.Ranker
	observer services.QueryObserver
	log      *logrus.Entry
	metrics  *Metrics

	requests chan *request
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers an observer notified after every query.
func WithObserver(observer services.QueryObserver) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// WithLogger sets the logger used by the engine.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithQueueSize sets how many requests may wait for the engine goroutine.
func WithQueueSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.requests = make(chan *request, size)
		}
	}
}

// New creates an engine over repo and ranker. Run must be called to start processing.
func New(repo services.CandidateRepository, ranker services.Ranker, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		ranker:   ranker,
		log:      logging.Discard(),
		metrics:  NewMetrics(),
		requests: make(chan *request, defaultQueueSize),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes requests until ctx is done or Stop is called. It returns an error only
// if the engine is already running.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine is already running")
	}
	defer e.Stop()

	e.log.Infof("Engine started (queue size %d)", cap(e.requests))
	for {
		select {
		case <-ctx.Done():
			e.log.Infof("Engine stopping: %v", ctx.Err())
			return nil
		case <-e.stopChan:
			e.log.Infof("Engine stopped")
			return nil
		case r := <-e.requests:
			e.process(r)
		}
	}
}

// Stop makes Run return after the request in progress, if any. Requests still queued are
// answered with ErrEngineStopped.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
}

// Stopped reports whether the engine has been stopped.
func (e *Engine) Stopped() bool {
	select {
	case <-e.stopChan:
		return true
	default:
		return false
	}
}

// Submit hands req to the engine goroutine and waits for its response.
//
// ok is false when req has an unknown type; such requests are dropped without a response.
// An error is returned only when the engine is stopped or ctx is done before the request
// was dequeued. Once dequeued, a request always runs to completion.
func (e *Engine) Submit(ctx context.Context, req model.Request) (model.Response, bool, error) {
	if !req.Type.Known() {
		e.log.Debugf("Ignoring message with unknown type %q", req.Type)
		return model.Response{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		return model.Response{}, true, err
	}
	if e.Stopped() {
		return model.Response{}, true, internalErrors.ErrEngineStopped
	}

	r := &request{ctx: ctx, req: req, reply: make(chan model.Response, 1)}

	select {
	case e.requests <- r:
	case <-ctx.Done():
		return model.Response{}, true, ctx.Err()
	case <-e.stopChan:
		return model.Response{}, true, internalErrors.ErrEngineStopped
	}

	select {
	case resp := <-r.reply:
		return resp, true, nil
	case <-ctx.Done():
		if r.state.CompareAndSwap(requestQueued, requestAbandoned) {
			return model.Response{}, true, ctx.Err()
		}
	case <-e.stopChan:
		if r.state.CompareAndSwap(requestQueued, requestAbandoned) {
			return model.Response{}, true, internalErrors.ErrEngineStopped
		}
	}

	// The loop took the request before it could be abandoned
	return <-r.reply, true, nil
}

// Load replaces the candidate set.
func (e *Engine) Load(ctx context.Context, candidates []model.Candidate) (model.LoadResult, error) {
	resp, _, err := e.Submit(ctx, model.Request{Type: model.MessageTypeLoad, Candidates: candidates})
	if err != nil {
		return model.LoadResult{}, err
	}
	return *resp.LoadResult, nil
}

// Patch applies an incremental add/remove batch.
func (e *Engine) Patch(ctx context.Context, adds, removes []model.Candidate) (model.PatchResult, error) {
	resp, _, err := e.Submit(ctx, model.Request{Type: model.MessageTypePatch, Adds: adds, Removes: removes})
	if err != nil {
		return model.PatchResult{}, err
	}
	return *resp.PatchResult, nil
}

// Query ranks the candidates against q.
func (e *Engine) Query(ctx context.Context, q string, limit int) (model.QueryResult, error) {
	resp, _, err := e.Submit(ctx, model.Request{Type: model.MessageTypeQuery, Query: q, Limit: limit})
	if err != nil {
		return model.QueryResult{}, err
	}
	return *resp.QueryResult, nil
}

// Stats returns a snapshot of the candidate store.
func (e *Engine) Stats(ctx context.Context) (model.StoreStats, error) {
	resp, _, err := e.Submit(ctx, model.Request{Type: model.MessageTypeStats})
	if err != nil {
		return model.StoreStats{}, err
	}
	return *resp.StoreStats, nil
}

// Metrics returns a copy of the message metrics.
func (e *Engine) Metrics() MetricsData {
	data := e.metrics.GetMetrics()
	data.QueueDepth = len(e.requests)
	return data
}

func (e *Engine) process(r *request) {
	if !r.state.CompareAndSwap(requestQueued, requestTaken) {
		e.metrics.RecordCancelled(r.req.Type)
		e.log.Debugf("Skipping %s message abandoned by its caller", r.req.Type)
		return
	}

	startTime := time.Now()
	resp, failed := e.handle(r.req)
	if failed {
		e.metrics.RecordFailed(r.req.Type)
	}
	e.metrics.RecordProcessed(r.req.Type, time.Since(startTime))

	r.reply <- resp
}

// handle dispatches one request. A panic in a handler is contained here and answered with
// a response that reports no effect, so one bad message cannot take the loop down.
func (e *Engine) handle(req model.Request) (resp model.Response, failed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Errorf("Recovered from panic while handling %s message: %v", req.Type, rec)
			resp = e.zeroEffect(req)
			failed = true
		}
	}()

	switch req.Type {
	case model.MessageTypeLoad:
		return e.handleLoad(req), false
	case model.MessageTypePatch:
		return e.handlePatch(req), false
	case model.MessageTypeQuery:
		return e.handleQuery(req), false
	case model.MessageTypeStats:
		stats := e.repo.Stats()
		return model.Response{Type: req.Type, ID: req.ID, StoreStats: &stats}, false
	default:
		// Submit filters unknown types
		panic(fmt.Sprintf("unhandled message type %q", req.Type))
	}
}

func (e *Engine) handleLoad(req model.Request) model.Response {
	var total int
	if req.Malformed {
		total = e.repo.Fail()
		e.log.Warnf("Received malformed load message; candidate store reset")
	} else {
		total = e.repo.Load(req.Candidates)
		e.log.Infof("Loaded %d candidates (%d received)", total, len(req.Candidates))
	}
	return model.Response{Type: req.Type, ID: req.ID, LoadResult: &model.LoadResult{Total: total}}
}

func (e *Engine) handlePatch(req model.Request) model.Response {
	result := e.repo.Patch(req.Adds, req.Removes)
	e.log.Debugf("Patched candidates: %d added, %d removed, %d total", result.AddsApplied, result.RemovesApplied, result.Total)
	return model.Response{Type: req.Type, ID: req.ID, PatchResult: &result}
}

func (e *Engine) handleQuery(req model.Request) model.Response {
	outcome := e.ranker.Rank(services.RankQuery{Query: req.Query, Limit: req.Limit})

	if e.observer != nil {
		e.observer.ObserveQuery(model.QueryEvent{
			Query:        req.Query,
			Limit:        req.Limit,
			ResultCount:  len(outcome.Result.Items),
			ResponseTime: outcome.Took,
			Cached:       outcome.Cached,
			Timestamp:    time.Now(),
		})
	}

	result := outcome.Result
	return model.Response{Type: req.Type, ID: req.ID, QueryResult: &result}
}

// zeroEffect builds the response of a request whose handler failed.
func (e *Engine) zeroEffect(req model.Request) model.Response {
	resp := model.Response{Type: req.Type, ID: req.ID}
	switch req.Type {
	case model.MessageTypeLoad:
		resp.LoadResult = &model.LoadResult{Total: e.safeTotal()}
	case model.MessageTypePatch:
		resp.PatchResult = &model.PatchResult{Total: e.safeTotal()}
	case model.MessageTypeQuery:
		resp.QueryResult = &model.QueryResult{Query: req.Query, Items: []model.RankedResult{}}
	case model.MessageTypeStats:
		resp.StoreStats = &model.StoreStats{}
	}
	return resp
}

func (e *Engine) safeTotal() (total int) {
	defer func() {
		if recover() != nil {
			total = 0
		}
	}()
	return e.repo.Stats().Total
}
