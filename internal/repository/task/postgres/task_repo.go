package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"taskSync/internal/logger"
	"taskSync/internal/models/task"
	repo "taskSync/internal/repository"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const slowQuery = time.Millisecond * 100

const taskColumns = `
				id,
				task_id,
				title,
				description,
				project_id,
				due_date,
				estimate,
				created_display,
				assignee,
				collaborators,
				status,
				archived,
				deleted_at,
				deleted_by,
				created_by,
				created_at,
				updated_at,
				marked_complete,
				marked_complete_by,
				version`

type Storage struct {
	pool    *pgxpool.Pool
	connURL string
}

type PoolConfig struct {
	MaxConns    int32
	MinConns    int32
	IdleTimeout time.Duration
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.IdleTimeout > 0 {
		config.MaxConnIdleTime = poolCfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool, connURL: connString}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	if taskToCreate.Collaborators == nil {
		taskToCreate.Collaborators = []task.User{}
	}

	// код задачи выводится из id в том же запросе
	query := `WITH next AS (SELECT nextval(pg_get_serial_sequence('tasks', 'id')) AS id)
				INSERT INTO tasks
				(id, task_id, title, description, project_id, due_date, estimate,
				 created_display, assignee, collaborators, status, archived, created_by,
				 marked_complete, marked_complete_by)
				SELECT next.id, 'T' || lpad(next.id::text, 4, '0'),
				 $1::varchar, $2::text, $3::varchar, $4::varchar, $5::varchar, $6::varchar,
				 $7::jsonb, $8::jsonb, $9::varchar, $10::boolean, $11::varchar,
				 $12::timestamptz, $13::varchar
				FROM next
				RETURNING id, task_id, created_at, updated_at, version`

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.ProjectID,
		taskToCreate.DueDate,
		taskToCreate.Estimate,
		taskToCreate.CreatedDisplay,
		taskToCreate.Assignee,
		taskToCreate.Collaborators,
		taskToCreate.Status,
		taskToCreate.Archived,
		taskToCreate.CreatedBy,
		taskToCreate.MarkedComplete,
		taskToCreate.MarkedCompleteBy,
	).Scan(&taskToCreate.ID, &taskToCreate.TaskID, &taskToCreate.CreatedAt, &taskToCreate.UpdatedAt, &taskToCreate.Version)

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	warnSlow(start)
	return nil
}

// Update с оптимистичной блокировкой по version
func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	if taskToUpdate.Collaborators == nil {
		taskToUpdate.Collaborators = []task.User{}
	}

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				project_id = $3,
				due_date = $4,
				estimate = $5,
				assignee = $6,
				collaborators = $7,
				status = $8,
				archived = $9,
				deleted_at = $10,
				deleted_by = $11,
				marked_complete = $12,
				marked_complete_by = $13,
				version = version + 1,
				updated_at = NOW()
			WHERE task_id = $14 AND version = $15
			RETURNING updated_at, version`

	err := s.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.ProjectID,
		taskToUpdate.DueDate,
		taskToUpdate.Estimate,
		taskToUpdate.Assignee,
		taskToUpdate.Collaborators,
		taskToUpdate.Status,
		taskToUpdate.Archived,
		taskToUpdate.DeletedAt,
		taskToUpdate.DeletedBy,
		taskToUpdate.MarkedComplete,
		taskToUpdate.MarkedCompleteBy,
		taskToUpdate.TaskID,
		taskToUpdate.Version,
	).Scan(&taskToUpdate.UpdatedAt, &taskToUpdate.Version)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missingOrConflict(ctx, taskToUpdate)
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}

	warnSlow(start)
	return nil
}

// мягкое удаление задачи
func (s *Storage) DeleteSoft(ctx context.Context, taskToDelete *task.Task, actor string) error {
	start := time.Now()

	query := `UPDATE tasks
				SET deleted_at = NOW(),
				deleted_by = $1,
				updated_at = NOW(),
				version = version + 1
			WHERE task_id = $2 AND version = $3
			RETURNING deleted_at, deleted_by, updated_at, version`

	err := s.pool.QueryRow(ctx, query, actor, taskToDelete.TaskID, taskToDelete.Version).
		Scan(&taskToDelete.DeletedAt, &taskToDelete.DeletedBy, &taskToDelete.UpdatedAt, &taskToDelete.Version)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missingOrConflict(ctx, taskToDelete)
		}
		logger.Error("Repository: Мягкое удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("мягкое удаление: %w", err)
	}

	warnSlow(start)
	return nil
}

// полное удаление из БД
func (s *Storage) DeleteFull(ctx context.Context, code string) error {
	start := time.Now()

	query := `DELETE FROM tasks
				WHERE task_id = $1`

	tag, err := s.pool.Exec(ctx, query, code)
	if err != nil {
		logger.Error("Repository: Полное удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("полное удаление: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnSlow(start)
	return nil
}

func (s *Storage) GetByCode(ctx context.Context, code string) (*task.Task, error) {
	start := time.Now()

	query := `SELECT` + taskColumns + `
				FROM tasks
				WHERE task_id = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnSlow(start)
	return t, nil
}

// List все задачи в порядке создания; удалённые только при includeDeleted
func (s *Storage) List(ctx context.Context, includeDeleted bool) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT` + taskColumns + `
				FROM tasks
				WHERE $1 OR deleted_at IS NULL
				ORDER BY id`

	rows, err := s.pool.Query(ctx, query, includeDeleted)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > slowQuery+time.Millisecond*time.Duration(len(tasks)) {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return tasks, nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	logger.Info("Repository: Применение миграций")

	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	logger.Info("Repository: Миграции применены")
	return nil
}

func (s *Storage) Down(ctx context.Context) error {
	logger.Info("Repository: Откат миграций")

	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка отката миграций", err)
		return fmt.Errorf("откат миграций: %w", err)
	}

	logger.Info("Repository: Миграции откатаны")
	return nil
}

func (s *Storage) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(s.connURL))
	if err != nil {
		logger.Error("Repository: Не удалось подготовить миграции", err)
		return nil, fmt.Errorf("подготовка миграций: %w", err)
	}
	return m, nil
}

// migrateURL драйвер pgx/v5 в golang-migrate регистрируется под схемой pgx5
func migrateURL(connString string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}

func (s *Storage) missingOrConflict(ctx context.Context, t *task.Task) error {
	var version int
	err := s.pool.QueryRow(ctx, `SELECT version FROM tasks WHERE task_id = $1`, t.TaskID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	logger.Warn("Конфликт версий при обновлении задачи",
		zap.String("task_id", t.TaskID),
		zap.Int("expected_version", t.Version),
		zap.Int("actual_version", version))
	return repo.ErrVersionConflict
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.TaskID,
		&t.Title,
		&t.Description,
		&t.ProjectID,
		&t.DueDate,
		&t.Estimate,
		&t.CreatedDisplay,
		&t.Assignee,
		&t.Collaborators,
		&t.Status,
		&t.Archived,
		&t.DeletedAt,
		&t.DeletedBy,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.MarkedComplete,
		&t.MarkedCompleteBy,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}
	if t.Collaborators == nil {
		t.Collaborators = []task.User{}
	}
	return t, nil
}

func warnSlow(start time.Time) {
	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
}
