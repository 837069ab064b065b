package usage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quotagate/quotagate-backend/pkg/db/models"
	"github.com/quotagate/quotagate-backend/pkg/logger"
)

const (
	defaultQueueSize = 256
	appendTimeout    = 5 * time.Second
)

type appender interface {
	AppendUsage(ctx context.Context, log *models.UsageLog) error
}

// Recorder writes usage logs asynchronously. Appends are best-effort: a full
// queue or a failed insert is logged and dropped, never surfaced to the
// request that was admitted.
type Recorder struct {
	repo   appender
	logger *logger.Logger
	queue  chan models.UsageLog

	closeOnce sync.Once
	done      chan struct{}
}

// RecorderParams bundles the dependencies required to build a recorder.
type RecorderParams struct {
	Repo      appender
	Logger    *logger.Logger
	QueueSize int
}

// NewRecorder constructs a recorder and starts its drain goroutine.
func NewRecorder(params RecorderParams) (*Recorder, error) {
	if params.Repo == nil {
		return nil, errors.New("usage repository is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	size := params.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	r := &Recorder{
		repo:   params.Repo,
		logger: params.Logger,
		queue:  make(chan models.UsageLog, size),
		done:   make(chan struct{}),
	}
	go r.drain()
	return r, nil
}

// Record enqueues a usage log without blocking the caller.
func (r *Recorder) Record(log models.UsageLog) {
	select {
	case r.queue <- log:
	default:
		ctx := r.logger.WithUserID(context.Background(), log.UserID.String())
		r.logger.Warn(ctx, "usage queue full, dropping log entry")
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
		<-r.done
	})
}

func (r *Recorder) drain() {
	defer close(r.done)
	for log := range r.queue {
		entry := log
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		if err := r.repo.AppendUsage(ctx, &entry); err != nil {
			logCtx := r.logger.WithUserID(ctx, entry.UserID.String())
			r.logger.Error(logCtx, "append usage log", err)
		}
		cancel()
	}
}
