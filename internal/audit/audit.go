// Package audit записывает действия администраторов, изменяющие данные магазина.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

// Sink принимает записи журнала.
type Sink interface {
	Record(ctx context.Context, e model.AuditEntry) error
}

// Reader возвращает последние записи журнала.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

const (
	queueSize   = 256
	sinkTimeout = 10 * time.Second
)

// Journal рассылает записи во все приёмники и пишет их в лог.
// Приёмники вызываются из Run, поэтому медленное хранилище не задерживает
// запросы администратора. Ошибки приёмников только логируются.
type Journal struct {
	sinks   []Sink
	reader  Reader
	logger  *zap.Logger
	queue   chan model.AuditEntry
	timeout time.Duration
	now     func() time.Time
}

// NewJournal создаёт журнал. reader может быть nil, если хранилища нет.
func NewJournal(logger *zap.Logger, reader Reader, sinks ...Sink) *Journal {
	return &Journal{
		sinks:   sinks,
		reader:  reader,
		logger:  logger,
		queue:   make(chan model.AuditEntry, queueSize),
		timeout: sinkTimeout,
		now:     time.Now,
	}
}

// Record создаёт запись, пишет её в лог и ставит в очередь приёмников.
// При переполненной очереди запись остаётся только в логе.
func (j *Journal) Record(_ context.Context, actor, action, target, details string) {
	e := model.AuditEntry{
		ID:        uuid.New(),
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   details,
		CreatedAt: j.now().UTC(),
	}

	j.logger.Info("admin action",
		zap.String("id", e.ID.String()),
		zap.String("actor", actor),
		zap.String("action", action),
		zap.String("target", target),
	)

	if len(j.sinks) == 0 {
		return
	}

	select {
	case j.queue <- e:
	default:
		j.logger.Warn("audit queue is full, entry dropped",
			zap.String("id", e.ID.String()),
			zap.String("action", action),
		)
	}
}

// Run доставляет записи приёмникам до отмены ctx, затем дописывает
// оставшиеся в очереди.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case e := <-j.queue:
			j.deliver(ctx, e)
		case <-ctx.Done():
			j.drain(ctx)
			return nil
		}
	}
}

func (j *Journal) drain(ctx context.Context) {
	for {
		select {
		case e := <-j.queue:
			j.deliver(ctx, e)
		default:
			return
		}
	}
}

func (j *Journal) deliver(ctx context.Context, e model.AuditEntry) {
	for _, s := range j.sinks {
		sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.timeout)
		err := s.Record(sinkCtx, e)
		cancel()
		if err != nil {
			j.logger.Error("audit sink error", zap.Error(err), zap.String("action", e.Action))
		}
	}
}

// ErrNoStorage возвращается Recent, если журнал не хранится в БД.
var ErrNoStorage = errors.New("audit storage not configured")

// Recent возвращает последние записи из хранилища.
func (j *Journal) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if j.reader == nil {
		return nil, ErrNoStorage
	}
	return j.reader.Recent(ctx, limit)
}
