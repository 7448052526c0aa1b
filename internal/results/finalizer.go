package results

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink is a durable store for finished match records.
type Sink interface {
	// Bucket names where records land; reported back to the controller.
	Bucket() string
	Put(ctx context.Context, key string, doc Document) error
}

// Outcome is what the controller hears about a persistence attempt.
type Outcome struct {
	OK     bool
	Key    string
	Bucket string
	Reason string
}

// Finalizer uploads documents off the session goroutine. Uploads never block
// the caller and their failures are reported, not returned.
type Finalizer struct {
	sink    Sink
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewFinalizer(sink Sink, timeout time.Duration, log *zap.Logger) *Finalizer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Finalizer{sink: sink, log: log, timeout: timeout}
}

// Submit starts the upload and calls done with the outcome from another
// goroutine. done may be nil.
func (f *Finalizer) Submit(doc Document, done func(Outcome)) {
	key := Key(doc)

	f.mu.Lock()
	if f.closing {
		f.mu.Unlock()
		go f.report(done, Outcome{OK: false, Key: key, Reason: "shutting_down"})
		return
	}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		f.report(done, f.upload(key, doc))
	}()
}

func (f *Finalizer) upload(key string, doc Document) (out Outcome) {
	out = Outcome{Key: key}
	if f.sink == nil {
		out.Reason = "no_sink"
		return out
	}
	out.Bucket = f.sink.Bucket()

	defer func() {
		if r := recover(); r != nil {
			f.log.Error("record upload panicked", zap.String("key", key), zap.Any("panic", r))
			out.OK = false
			out.Reason = fmt.Sprint(r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.sink.Put(ctx, key, doc); err != nil {
		f.log.Warn("record upload failed",
			zap.String("code", doc.GameRoomCode),
			zap.String("key", key),
			zap.Error(err))
		out.Reason = err.Error()
		return out
	}
	f.log.Info("record saved", zap.String("code", doc.GameRoomCode), zap.String("key", key))
	out.OK = true
	return out
}

func (f *Finalizer) report(done func(Outcome), o Outcome) {
	if done != nil {
		done(o)
	}
}

// Close refuses new uploads and waits for in-flight ones until ctx expires.
func (f *Finalizer) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closing = true
	f.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("record upload drain: %w", ctx.Err())
	}
}
