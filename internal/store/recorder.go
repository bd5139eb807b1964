package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/typerace-backend/internal/engine"
)

// Recorder moves finished rounds off the hub loop and into a ResultStore.
type Recorder struct {
	queue   chan engine.RoundResult
	store   ResultStore
	timeout time.Duration
	log     *zap.Logger
}

func NewRecorder(store ResultStore, size int, log *zap.Logger) *Recorder {
	if size <= 0 {
		size = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		queue:   make(chan engine.RoundResult, size),
		store:   store,
		timeout: 5 * time.Second,
		log:     log.With(zap.String("component", "recorder")),
	}
}

// Record enqueues r without blocking. When the queue is full the result is
// dropped.
func (r *Recorder) Record(res engine.RoundResult) {
	select {
	case r.queue <- res:
	default:
		r.log.Warn("result queue full, dropping round",
			zap.String("room", res.RoomID),
			zap.Int("round", res.Round))
	}
}

// Run drains the queue until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return nil
		case res := <-r.queue:
			r.save(context.Background(), res)
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case res := <-r.queue:
			r.save(context.Background(), res)
		default:
			return
		}
	}
}

func (r *Recorder) save(parent context.Context, res engine.RoundResult) {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()
	if err := r.store.SaveResult(ctx, res); err != nil {
		r.log.Error("save round result", zap.String("room", res.RoomID), zap.Error(err))
		return
	}
	r.log.Debug("round result saved", zap.String("room", res.RoomID), zap.Int("round", res.Round))
}
