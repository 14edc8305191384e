package auditlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	auditDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/auditlog"
)

type Worker struct {
	ID         int
	WorkerPool chan chan *auditDatamodel.Entry
	JobChannel chan *auditDatamodel.Entry
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan *auditDatamodel.Entry, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan *auditDatamodel.Entry),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(*auditDatamodel.Entry)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("audit worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case entry := <-w.JobChannel:
				processFunc(entry)
			case <-ctx.Done():
				w.Logger.Debug("audit worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type WriterConfig struct {
	MaxWorkers   int
	QueueSize    int
	WriteTimeout time.Duration
}

// Writer persists audit entries on a bounded pool of workers. Enqueue never
// blocks the request path; entries are dropped when the queue is full.
type Writer struct {
	repo         RepositoryAPI
	logger       *slog.Logger
	writeTimeout time.Duration

	jobQueue   chan *auditDatamodel.Entry
	workerPool chan chan *auditDatamodel.Entry
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
}

func NewWriter(repo RepositoryAPI, config WriterConfig, logger *slog.Logger) *Writer {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	writeTimeout := config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	w := &Writer{
		repo:         repo,
		logger:       logger,
		writeTimeout: writeTimeout,
		maxWorkers:   maxWorkers,
		jobQueue:     make(chan *auditDatamodel.Entry, queueSize),
		workerPool:   make(chan chan *auditDatamodel.Entry, maxWorkers),
		ctx:          ctx,
		cancel:       cancel,
	}

	w.start()

	return w
}

func (w *Writer) start() {
	w.once.Do(func() {
		for i := 0; i < w.maxWorkers; i++ {
			worker := NewWorker(i, w.workerPool, w.logger)
			worker.Start(w.ctx, &w.wg, w.write)
		}

		w.wg.Add(1)
		go w.dispatch()

		w.logger.Info("audit log writer started",
			"max_workers", w.maxWorkers,
			"queue_size", cap(w.jobQueue))
	})
}

func (w *Writer) dispatch() {
	defer w.wg.Done()

	for {
		select {
		case entry := <-w.jobQueue:
			select {
			case jobChannel := <-w.workerPool:
				select {
				case jobChannel <- entry:
				case <-w.ctx.Done():
					w.write(entry)
					w.drain()
					return
				}
			case <-w.ctx.Done():
				w.write(entry)
				w.drain()
				return
			}
		case <-w.ctx.Done():
			w.drain()
			return
		}
	}
}

// drain writes whatever is still queued at shutdown.
func (w *Writer) drain() {
	for {
		select {
		case entry := <-w.jobQueue:
			w.write(entry)
		default:
			w.logger.Info("audit dispatcher shutting down")
			return
		}
	}
}

func (w *Writer) write(entry *auditDatamodel.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if err := w.repo.Create(ctx, entry); err != nil {
		w.logger.Error("failed to write audit entry",
			"module", entry.Module,
			"action", entry.Action,
			"error", err)
	}
}

// Enqueue reports whether the entry was accepted.
func (w *Writer) Enqueue(entry *auditDatamodel.Entry) bool {
	if w.ctx.Err() != nil {
		return false
	}
	select {
	case w.jobQueue <- entry:
		return true
	default:
		w.logger.Warn("audit queue full, dropping entry",
			"module", entry.Module,
			"action", entry.Action,
			"queue_capacity", cap(w.jobQueue))
		return false
	}
}

// Pending is the number of entries waiting for a worker.
func (w *Writer) Pending() int {
	return len(w.jobQueue)
}

func (w *Writer) Shutdown() {
	w.stopOnce.Do(func() {
		w.logger.Info("shutting down audit log writer")
		w.cancel()
		w.wg.Wait()
		w.logger.Info("audit log writer shutdown complete")
	})
}
