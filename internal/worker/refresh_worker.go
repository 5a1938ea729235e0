package worker

import (
	"context"
	"taskSync/internal/logger"
	"time"

	"go.uber.org/zap"
)

// Loader источник обновлений; в приложении это tasksync.Store
type Loader interface {
	Load(ctx context.Context) error
}

// RefreshWorker периодически перечитывает снимок задач: других каналов свежести нет
type RefreshWorker struct {
	loader    Loader
	interval  time.Duration
	onRefresh func(error)
}

type RefreshOption func(*RefreshWorker)

// OnRefresh вызывается после каждой попытки обновления
func OnRefresh(fn func(error)) RefreshOption {
	return func(w *RefreshWorker) {
		w.onRefresh = fn
	}
}

func NewRefreshWorker(loader Loader, interval *time.Duration, opts ...RefreshOption) *RefreshWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = 30 * time.Second
	} else {
		intervalToSet = *interval
	}

	w := &RefreshWorker{
		loader:   loader,
		interval: intervalToSet,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *RefreshWorker) Interval() time.Duration {
	return w.interval
}

func (w *RefreshWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Debug("Worker: Фоновое обновление задач", zap.Time("started_at", time.Now()))
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновое обновление останавливается")
			return
		}
	}
}

func (w *RefreshWorker) Check(ctx context.Context) error {
	start := time.Now()

	err := w.loader.Load(ctx)
	if err != nil {
		logger.Warn("Worker: ошибка обновления задач", zap.Error(err))
	} else {
		logger.Debug("Worker: Завершение обновления задач", zap.Duration("ms", time.Since(start)))
	}

	if w.onRefresh != nil {
		w.onRefresh(err)
	}
	return err
}
