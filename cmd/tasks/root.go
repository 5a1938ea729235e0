package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskSync/internal/config"
	"taskSync/internal/gateway"
	"taskSync/internal/logger"
	"taskSync/internal/models/task"
	"taskSync/internal/output"
	"taskSync/internal/tasksync"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	flagConfig  string
	flagUser    string
	flagJSON    bool
	flagNoColor bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "tasks",
	Short:         "Клиент синхронизации задач",
	Long:          `tasks держит локальный снимок задач сервера и применяет изменения оптимистично, сверяя их с ответом сервера.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if flagNoColor || os.Getenv("NO_COLOR") != "" {
			output.DisableColor()
		}
		if flagVerbose {
			return logger.Init(true)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "путь к config.yml")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "пользователь, от имени которого идут изменения (по умолчанию gateway.user)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "вывод в JSON")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "без цвета")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "журнал в stderr")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err == nil {
		return
	}

	resp := errorResponse(err)
	if outputFormat() == output.FormatJSON {
		output.JSONError(os.Stdout, resp)
	} else {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
	}
	os.Exit(1)
}

func outputFormat() output.Format {
	return output.Detect(flagJSON)
}

// errorResponse код ошибки для машинного разбора
func errorResponse(err error) output.ErrorResponse {
	resp := output.ErrorResponse{Error: err.Error(), Code: "INTERNAL_ERROR"}

	var rf *tasksync.RemoteFailure
	switch {
	case errors.As(err, &rf):
		resp.Code = "REMOTE_FAILURE"
		if rf.Code != "" {
			resp.Code = rf.Code
		}
		if gateway.IsConflict(err) {
			resp.Code = "VERSION_CONFLICT"
		}
		resp.Status = rf.Status
		resp.TaskID = rf.TaskID
		resp.Message = rf.Message
	case errors.Is(err, tasksync.ErrNotFound):
		resp.Code = "TASK_NOT_FOUND"
	case errors.Is(err, tasksync.ErrInvalidStatus):
		resp.Code = "INVALID_STATUS"
	case errors.Is(err, tasksync.ErrInvalidPatch):
		resp.Code = "INVALID_INPUT"
	case errors.Is(err, tasksync.ErrNotInTrash):
		resp.Code = "NOT_IN_TRASH"
	case errors.Is(err, tasksync.ErrAlreadyInTrash):
		resp.Code = "ALREADY_IN_TRASH"
	case errors.Is(err, tasksync.ErrUndoExpired):
		resp.Code = "UNDO_EXPIRED"
	}
	return resp
}

func errNotFound(code string) error {
	return fmt.Errorf("%w: %s", tasksync.ErrNotFound, code)
}

// session снимок задач и движок поверх удалённого шлюза
type session struct {
	cfg    *config.Config
	user   string
	store  *tasksync.Store
	engine *tasksync.Engine
	filter *tasksync.AccessFilter
	labels task.Labels
}

func openSession(ctx context.Context) (context.Context, *session, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return ctx, nil, err
	}

	user := flagUser
	if user == "" {
		user = cfg.Gateway.User
	}

	labels := task.DefaultLabels()
	if err := labels.Extend(cfg.Statuses); err != nil {
		return ctx, nil, err
	}
	policy, err := tasksync.ParseFailurePolicy(cfg.Sync.FailurePolicy)
	if err != nil {
		return ctx, nil, err
	}

	gw := gateway.New(cfg.Gateway.URL,
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithUser(user))

	var storeOpts []tasksync.StoreOption
	if !cfg.Sync.IncludeTrash {
		storeOpts = append(storeOpts, tasksync.WithoutTrash())
	}
	store := tasksync.NewStore(gw, storeOpts...)
	engine := tasksync.NewEngine(store,
		tasksync.WithFailurePolicy(policy),
		tasksync.WithLabels(labels),
		tasksync.WithUndoWindow(cfg.Sync.UndoWindow))

	if user != "" {
		ctx = tasksync.WithActor(ctx, user)
	}
	if err := store.Load(ctx); err != nil {
		return ctx, nil, err
	}

	return ctx, &session{
		cfg:    cfg,
		user:   user,
		store:  store,
		engine: engine,
		filter: tasksync.NewAccessFilter(tasksync.NewStaticDirectory(cfg.Access.Admins...)),
		labels: labels,
	}, nil
}

// printTask выводит задачу в выбранном формате
func printTask(t *task.Task) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}
	output.TaskDetail(os.Stdout, t)
	return nil
}

func printTasks(tasks []*task.Task) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, tasks)
	}
	output.TaskTable(os.Stdout, tasks)
	return nil
}
