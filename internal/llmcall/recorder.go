package llmcall

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackzampolin/adoread/internal/providers"
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	Store         *Store
	BatchSize     int           // Flush after N calls (default: 50)
	FlushInterval time.Duration // Or after duration (default: 2s)
	QueueSize     int           // Buffer size (default: 500)
	Logger        *slog.Logger
}

// Recorder handles fire-and-forget LLM call recording. Calls are queued and
// written in batches by a single goroutine. A nil *Recorder drops everything.
type Recorder struct {
	store  *Store
	logger *slog.Logger

	batchSize     int
	flushInterval time.Duration

	queue   chan *Call
	flushCh chan chan struct{}

	mu       sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRecorder creates a recorder and starts its writer.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 500
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Recorder{
		store:         cfg.Store,
		logger:        cfg.Logger,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		queue:         make(chan *Call, cfg.QueueSize),
		flushCh:       make(chan chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record captures an LLM call asynchronously.
func (r *Recorder) Record(result *providers.ChatResult, opts RecordOptions) {
	if r == nil {
		return
	}
	r.RecordCall(FromChatResult(result, opts))
}

// RecordCall queues an already-constructed Call. When the queue is full the
// call is dropped with a warning rather than blocking the request.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || call == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		r.logger.Warn("recorder stopped, dropping llm call", "id", call.ID, "prompt_key", call.PromptKey)
		return
	}
	select {
	case r.queue <- call:
	default:
		r.logger.Warn("llm call queue full, dropping record", "id", call.ID, "prompt_key", call.PromptKey)
	}
}

// Flush blocks until everything queued so far has been written.
func (r *Recorder) Flush(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	if r.stopped {
		r.mu.RUnlock()
		return nil
	}
	done := make(chan struct{})
	select {
	case r.flushCh <- done:
	case <-ctx.Done():
		r.mu.RUnlock()
		return ctx.Err()
	}
	r.mu.RUnlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop flushes remaining calls and stops the writer.
func (r *Recorder) Stop() {
	if r == nil {
		return
	}
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		close(r.queue)
		r.mu.Unlock()
		r.wg.Wait()
	})
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]*Call, 0, r.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if r.store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := r.store.Insert(ctx, batch...); err != nil {
				r.logger.Error("failed to write llm calls", "count", len(batch), "error", err)
			}
			cancel()
		}
		batch = batch[:0]
	}

	for {
		select {
		case call, ok := <-r.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, call)
			if len(batch) >= r.batchSize {
				flush()
			}

		case done := <-r.flushCh:
			// drain whatever is already queued
			for drained := false; !drained; {
				select {
				case call, ok := <-r.queue:
					if !ok {
						drained = true
						break
					}
					batch = append(batch, call)
				default:
					drained = true
				}
			}
			flush()
			close(done)

		case <-ticker.C:
			flush()
		}
	}
}
