package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"taskSync/internal/config"
	"taskSync/internal/handlers"
	"taskSync/internal/logger"
	"taskSync/internal/models/task"
	"taskSync/internal/repository/task/inmemory"
	"taskSync/internal/repository/task/postgres"
	"taskSync/internal/service"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	server     *http.Server
	router     http.Handler
	repository service.TaskRepository
	service    *service.TaskService
	shutdowns  []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	repoType, err := a.initRepository(ctx)
	if err != nil {
		return nil, err
	}

	labels := task.DefaultLabels()
	if err := labels.Extend(a.config.Statuses); err != nil {
		return nil, fmt.Errorf("подписи статусов: %w", err)
	}

	svc := service.NewTaskService(a.repository, repoType)
	a.service = &svc
	handler := handlers.NewTaskHandler(a.service, labels)

	a.router = handlers.NewRouter(&handler, handlers.RouterConfig{
		Timeout:        a.config.Server.Timeout,
		RateLimit:      a.config.Server.RateLimit,
		AllowedOrigins: a.config.Server.AllowedOrigins,
	})
	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("App: Инициализация завершена",
		zap.String("addr", a.server.Addr),
		zap.String("repository", string(repoType)))
	return a, nil
}

func (a *App) initRepository(ctx context.Context) (service.RepoType, error) {
	switch service.RepoType(a.config.Repository.Type) {
	case service.DBType:
		storage, err := postgres.New(ctx, a.config.Database.URL, postgres.PoolConfig{
			MaxConns:    int32(a.config.Database.MaxConnections),
			MinConns:    int32(a.config.Database.MinConnections),
			IdleTimeout: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return "", fmt.Errorf("подключение к postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие пула соединений...")
			storage.Close()
		})

		if a.config.Database.Migrate {
			if err := storage.Migrate(ctx); err != nil {
				return "", fmt.Errorf("миграции: %w", err)
			}
		}
		a.repository = storage
		return service.DBType, nil
	default:
		a.repository = inmemory.NewTaskStorage()
		return service.InMemoryType, nil
	}
}

// Handler роутер приложения; нужен тестам и встраиванию
func (a *App) Handler() http.Handler {
	return a.router
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер и освобождает ресурсы
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("Остановка HTTP сервера...")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка сервера: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.Close()
	return err
}

// Close выполняет shutdown-функции в обратном порядке
func (a *App) Close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
