// Package ui is the terminal host of the graph engine: a bubbletea program
// that drives frames, maps mouse and keys onto engine input and paints the
// rendered raster as half-block cells.
//
// This file implements the BackgroundWorker, which loads datasets and runs
// mutations off the UI goroutine.
package ui

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/kgview/pkg/analysis"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/source"
	"github.com/vanderheijden86/kgview/pkg/watcher"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for a trigger.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means a load is in flight.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "load", "mutate", "subscribe"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Consecutive failures so far
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// Subscriber is implemented by sources that push change notifications.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

// BackgroundWorker loads datasets from a Source and runs mutations against
// it. Triggers arriving during a load are coalesced into one follow-up load.
type BackgroundWorker struct {
	src           source.Source
	watchPath     string
	debounceDelay time.Duration
	deriveWeights bool
	send          func(tea.Msg)

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool // a trigger arrived while processing
	force      bool // next load skips the unchanged-content check
	started    bool
	loaded     bool // a live dataset has been delivered
	lastHash   string
	lastError  *WorkerError
	errorCount int

	watcher *watcher.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	Source source.Source
	// WatchPath is a file whose changes trigger a reload. Empty disables
	// watching.
	WatchPath     string
	DebounceDelay time.Duration
	// DeriveWeights fills missing entity weights from graph centrality.
	DeriveWeights bool
	// Send delivers messages to the UI, normally tea.Program.Send.
	Send func(tea.Msg)
}

// NewBackgroundWorker creates a new background worker.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = watcher.DefaultDebounce
	}
	if cfg.Send == nil {
		cfg.Send = func(tea.Msg) {}
	}

	w := &BackgroundWorker{
		src:           cfg.Source,
		watchPath:     cfg.WatchPath,
		debounceDelay: cfg.DebounceDelay,
		deriveWeights: cfg.DeriveWeights,
		send:          cfg.Send,
		state:         WorkerIdle,
		ctx:           ctx,
		cancel:        cancel,
	}

	if cfg.WatchPath != "" {
		fw, err := watcher.NewWatcher(cfg.WatchPath,
			watcher.WithDebounceDuration(cfg.DebounceDelay),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}

	return w, nil
}

// Start begins watching, subscribes to push sources and kicks off the
// initial load. Start is idempotent.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher != nil {
		if err := w.watcher.Start(); err != nil {
			return err
		}
		w.wg.Add(1)
		go w.watchLoop()
	}
	if sub, ok := w.src.(Subscriber); ok {
		w.wg.Add(1)
		go w.subscribeLoop(sub)
	}

	w.TriggerRefresh()
	return nil
}

// Stop halts the background worker and cleans up resources.
// Stop is idempotent - calling it multiple times has no effect.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	w.mu.Unlock()

	w.cancel()
	if w.watcher != nil {
		w.watcher.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		log.Printf("worker: timed out waiting for background goroutines")
	}
}

// TriggerRefresh schedules a load. It is coalesced with a load in flight.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	// Add under mu so Stop cannot start waiting between the check and the Add.
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.process()
	}()
}

// ForceRefresh schedules a load that is delivered even when the content is
// unchanged.
func (w *BackgroundWorker) ForceRefresh() {
	w.mu.Lock()
	w.force = true
	w.mu.Unlock()
	w.TriggerRefresh()
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Describe names the worker's source.
func (w *BackgroundWorker) Describe() string {
	if w.src == nil {
		return "none"
	}
	return source.Describe(w.src)
}

func (w *BackgroundWorker) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.TriggerRefresh()
		}
	}
}

// subscribeLoop follows a push source's change stream, reconnecting with
// exponential backoff when it breaks.
func (w *BackgroundWorker) subscribeLoop(sub Subscriber) {
	defer w.wg.Done()
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		events, err := sub.Subscribe(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			log.Printf("worker: subscribe to %s: %v", w.Describe(), err)
		} else {
			backoff = time.Second
			for range events {
				w.TriggerRefresh()
			}
			if w.ctx.Err() != nil {
				return
			}
			// The stream may have dropped events; catch up.
			w.TriggerRefresh()
		}

		select {
		case <-w.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// process loads the dataset and delivers it. Loads run one at a time.
func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	force := w.force
	w.force = false
	w.mu.Unlock()

	msg := w.load(force)

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	w.mu.Unlock()

	if msg != nil {
		w.send(msg)
	}
	if wasDirty {
		w.process()
	}
}

// load runs one load and returns the message for the UI, or nil when the
// content is unchanged.
func (w *BackgroundWorker) load(force bool) tea.Msg {
	start := time.Now()

	var ds model.Dataset
	loadErr := w.safeCompute("load", func() error {
		if w.src == nil {
			return fmt.Errorf("no data source configured")
		}
		var err error
		ds, err = w.src.Load(w.ctx)
		return err
	})

	if loadErr != nil {
		w.recordError(loadErr)
		w.mu.RLock()
		loaded := w.loaded
		w.mu.RUnlock()
		log.Printf("worker: load from %s failed: %v", w.Describe(), loadErr)
		if loaded {
			// Keep the live data on screen.
			return LoadErrorMsg{Err: loadErr}
		}
		w.mu.Lock()
		w.lastHash = ""
		w.mu.Unlock()
		return DatasetReadyMsg{Dataset: model.Fallback(), Fallback: true, Err: loadErr}
	}
	w.recordError(nil)

	if w.deriveWeights {
		ds = analysis.DeriveWeights(ds)
	}

	hash := datasetHash(ds)
	w.mu.Lock()
	unchanged := hash == w.lastHash && w.lastHash != "" && !force
	w.lastHash = hash
	w.loaded = true
	w.mu.Unlock()
	if unchanged {
		log.Printf("worker: content unchanged (hash=%s), skipping rebuild", hashPrefix(hash))
		return nil
	}

	log.Printf("worker: loaded %d entities, %d relations from %s in %v (hash=%s)",
		len(ds.Entities), len(ds.Relations), w.Describe(), time.Since(start), hashPrefix(hash))
	return DatasetReadyMsg{Dataset: ds, Hash: hash}
}

// Mutate runs fn against the source off the UI goroutine, reports the
// outcome with a MutationDoneMsg and reloads on success. The UI never
// applies a mutation locally.
func (w *BackgroundWorker) Mutate(op string, fn func(ctx context.Context, src source.Source) (int, error)) {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		var n int
		werr := w.safeCompute("mutate", func() error {
			if w.src == nil {
				return source.ErrReadOnly
			}
			var err error
			n, err = fn(w.ctx, w.src)
			return err
		})
		if w.ctx.Err() != nil {
			return
		}
		if werr != nil {
			log.Printf("worker: %s: %v", op, werr)
			w.send(MutationDoneMsg{Op: op, Err: werr})
			return
		}
		w.send(MutationDoneMsg{Op: op, Count: n})
		w.ForceRefresh()
	}()
}

// safeCompute executes fn and recovers from any panics.
// Returns a WorkerError if fn fails or panics, nil otherwise.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{
				Phase: phase,
				Cause: err,
				Time:  time.Now(),
			}
		}
	}()
	return result
}

// recordError tracks an error and updates error state.
func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// LastError returns the most recent load error (nil if the last load
// succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// LastHash returns the content hash of the last delivered dataset.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// DatasetReadyMsg carries a freshly loaded dataset to the UI. Fallback is
// set when the source failed and the built-in dataset was substituted; Err
// then holds the load error.
type DatasetReadyMsg struct {
	Dataset  model.Dataset
	Fallback bool
	Err      error
	Hash     string
}

// LoadErrorMsg reports a failed reload while live data is on screen.
type LoadErrorMsg struct {
	Err error
}

// MutationDoneMsg reports the outcome of Mutate.
type MutationDoneMsg struct {
	Op    string
	Count int
	Err   error
}

func datasetHash(ds model.Dataset) string {
	data, err := json.Marshal(ds)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashPrefix returns a safe prefix of the hash for logging.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
