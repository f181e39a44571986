package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"juku-import/internal/logger"
	"juku-import/internal/model"
	"juku-import/internal/queue"

	"github.com/rs/zerolog"
)

// Processor uploads one confirmed import session.
type Processor interface {
	Process(ctx context.Context, sessionID string) error
}

type SubmitWorker struct {
	processor  Processor
	consumer   *queue.Consumer
	workerPool *WorkerPool
	consuming  chan struct{}
	log        zerolog.Logger
}

func NewSubmitWorker(processor Processor, consumer *queue.Consumer, workerCount int) *SubmitWorker {
	return &SubmitWorker{
		processor:  processor,
		consumer:   consumer,
		workerPool: NewWorkerPool(workerCount),
		consuming:  make(chan struct{}),
		log:        logger.Get(),
	}
}

func (w *SubmitWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting submit worker")

	w.workerPool.Start(ctx)
	defer close(w.consuming)

	return w.consumer.ConsumeSubmitQueue(ctx, w.handleMessage)
}

// Stop waits for the consumer to return, so it must follow cancellation of
// the context passed to Start.
func (w *SubmitWorker) Stop() {
	w.log.Info().Msg("Stopping submit worker")
	<-w.consuming
	w.workerPool.Stop()
}

func (w *SubmitWorker) handleMessage(ctx context.Context, data []byte) error {
	job, err := decodeJob(data)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal submit job")
		return err
	}

	w.log.Info().Str("session_id", job.SessionID).Msg("Processing submit job")

	process := func(ctx context.Context) error {
		if err := w.processor.Process(ctx, job.SessionID); err != nil {
			w.consumer.DeadLetter(ctx, data)
			return err
		}
		return nil
	}

	if err := w.workerPool.Submit(ctx, process); err != nil {
		// Shutting down with a full pool: the message is already off the
		// queue, so record the interruption here rather than drop it.
		w.log.Warn().Str("session_id", job.SessionID).Msg("Worker pool closed to new jobs, processing inline")
		_ = process(ctx)
	}
	return nil
}

func decodeJob(data []byte) (model.SubmitJob, error) {
	var job model.SubmitJob
	if err := json.Unmarshal(data, &job); err != nil {
		return job, err
	}
	if job.SessionID == "" {
		return job, fmt.Errorf("submit job has no session id")
	}
	return job, nil
}
