package email

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/observability"
)

const sendTimeout = 15 * time.Second

// Dispatcher runs the workers that drain a Queue into a Sender.
type Dispatcher struct {
	queue   Queue
	sender  Sender
	workers int
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given number of workers (at least one).
func NewDispatcher(queue Queue, sender Sender, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{queue: queue, sender: sender, workers: workers}
}

// Start launches the workers. They exit when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			observability.LogAsyncOperationError(ctx, "email.dequeue", err, map[string]any{"worker": id})
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		d.Deliver(ctx, job)
	}
}

// Deliver sends one job and records the outcome. Failures are logged, never returned.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) Result {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	res := d.sender.Send(sendCtx, job.Message)
	if !res.Success {
		cause := res.Err
		if cause == nil {
			cause = errors.New("provider rejected message")
		}
		err := models.NewDependencyError("email provider", cause)
		res.Err = err
		observability.EmailsTotal.WithLabelValues(job.Kind, "failed").Inc()
		observability.LogBestEffortFailure(ctx, "email.send", err, map[string]any{
			"kind":    job.Kind,
			"subject": job.Message.Subject,
		})
		return res
	}

	observability.EmailsTotal.WithLabelValues(job.Kind, "sent").Inc()
	observability.GlobalLogger.InfoContext(ctx, "email sent",
		slog.String("kind", job.Kind),
		slog.String("id", res.ID),
		slog.String("subject", job.Message.Subject),
	)
	return res
}

// Outbox renders messages and hands them to the queue without blocking the caller.
type Outbox struct {
	renderer *Renderer
	queue    Queue
	now      func() time.Time
}

// NewOutbox creates an Outbox. A nil queue turns Enqueue into a no-op.
func NewOutbox(renderer *Renderer, queue Queue) *Outbox {
	return &Outbox{renderer: renderer, queue: queue, now: time.Now}
}

// Enqueue renders kind and queues it as an immediate email. A full or unreachable
// queue drops the email with a warning.
func (o *Outbox) Enqueue(ctx context.Context, kind Kind, data Data) {
	if o == nil || o.queue == nil || data.To == "" {
		return
	}
	msg, err := o.renderer.Render(kind, data)
	if err != nil {
		observability.LogBestEffortFailure(ctx, "email.render", err, map[string]any{"kind": string(kind)})
		return
	}
	job := Job{Kind: JobImmediate, Message: msg, EnqueuedAt: o.now().UTC()}
	if err := o.queue.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		observability.EmailsTotal.WithLabelValues(JobImmediate, "dropped").Inc()
		observability.LogBestEffortFailure(ctx, "email.enqueue", err, map[string]any{
			"kind":    string(kind),
			"subject": msg.Subject,
		})
	}
}
