package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/infrastructure/resilience"
)

const workerGroup = "analysis-workers"

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	onLag    func(time.Duration)
	now      func() time.Time
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// OnLag receives the time a message spent in the queue before a worker
	// picked it up.
	OnLag func(time.Duration)
}

// uploadEvent is the wire body of a file-uploaded message.
type uploadEvent struct {
	FileID      string    `json:"file_id"`
	PublishedAt time.Time `json:"published_at"`
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("interview-insights"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		onLag:    options.OnLag,
		now:      time.Now,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishFileUploaded(ctx context.Context, fileID string) error {
	body, err := encodeUploadEvent(fileID, q.now())
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, body); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, publishOperation, call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	return publishError(fileID, err)
}

// SubscribeFileUploaded blocks until ctx is done, then drains the
// subscription so in-flight handlers finish.
func (q *Queue) SubscribeFileUploaded(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		event, err := decodeUploadEvent(msg.Data)
		if err != nil {
			slog.Error("queue_message_rejected", "subject", msg.Subject, "error", err)
			return
		}
		if q.onLag != nil && !event.PublishedAt.IsZero() {
			q.onLag(q.now().Sub(event.PublishedAt))
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event.FileID); err != nil {
			slog.Error("worker_handler_failed", "file_id", event.FileID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeUploadEvent(fileID string, at time.Time) ([]byte, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "publish upload event", fmt.Errorf("file id is required"))
	}
	body, err := json.Marshal(uploadEvent{FileID: fileID, PublishedAt: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal upload event: %w", err)
	}
	return body, nil
}

// decodeUploadEvent also accepts a bare file ID body.
func decodeUploadEvent(data []byte) (uploadEvent, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return uploadEvent{}, fmt.Errorf("empty message")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return uploadEvent{FileID: trimmed}, nil
	}
	var event uploadEvent
	if err := json.Unmarshal([]byte(trimmed), &event); err != nil {
		return uploadEvent{}, fmt.Errorf("decode upload event: %w", err)
	}
	if strings.TrimSpace(event.FileID) == "" {
		return uploadEvent{}, fmt.Errorf("upload event without file_id")
	}
	return event, nil
}
