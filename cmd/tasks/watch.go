package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"taskSync/internal/output"
	"taskSync/internal/tasksync"
	"taskSync/internal/worker"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Интерактивный режим с фоновым обновлением",
	Long: `Держит снимок задач в памяти и обновляет его каждые sync.refresh_interval.
Команды: board, list, trash, show CODE, status CODE STATUS, done CODE, rm CODE,
restore CODE, purge CODE, undo, dismiss, load, quit.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// repl одна интерактивная сессия; последняя выданная отмена живёт до undo, dismiss или новой отмены
type repl struct {
	s      *session
	out    io.Writer
	prompt bool
	mtx    sync.Mutex
	undo   *tasksync.Undo
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &repl{s: s, out: os.Stdout, prompt: term.IsTerminal(int(os.Stdin.Fd()))}

	interval := s.cfg.Sync.RefreshInterval
	w := worker.NewRefreshWorker(s.store, &interval, worker.OnRefresh(func(err error) {
		if err == nil {
			return
		}
		r.mtx.Lock()
		defer r.mtx.Unlock()
		fmt.Fprintln(r.out, "! обновление не удалось:", err)
	}))
	go w.Start(ctx)

	r.print(func() { output.Board(r.out, s.store.GroupByStatus()) })
	return r.loop(ctx, os.Stdin)
}

func (r *repl) print(fn func()) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	fn()
}

func (r *repl) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if r.prompt {
			r.print(func() { fmt.Fprint(r.out, "> ") })
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := r.exec(ctx, fields[0], fields[1:]); err != nil {
			r.print(func() { fmt.Fprintln(r.out, "Ошибка:", err) })
		}
	}
}

func (r *repl) exec(ctx context.Context, name string, args []string) error {
	engine, store := r.s.engine, r.s.store

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: не хватает аргументов", name)
		}
		return nil
	}

	switch name {
	case "board":
		r.print(func() { output.Board(r.out, store.GroupByStatus()) })
	case "list":
		r.print(func() { output.TaskTable(r.out, store.ActiveOnly()) })
	case "trash":
		r.print(func() { output.TaskTable(r.out, store.TrashOnly()) })
	case "show":
		if err := need(1); err != nil {
			return err
		}
		t, ok := store.Get(args[0])
		if !ok {
			return errNotFound(args[0])
		}
		r.print(func() { output.TaskDetail(r.out, t) })
	case "load":
		if err := store.Load(ctx); err != nil {
			return err
		}
		r.print(func() { output.Messagef(r.out, "Загружено задач: %d", store.Len()) })
	case "status":
		if err := need(2); err != nil {
			return err
		}
		res, err := engine.SetStatus(ctx, args[0], args[1])
		return r.result(res, err)
	case "done":
		if err := need(1); err != nil {
			return err
		}
		res, err := engine.Complete(ctx, args[0])
		return r.result(res, err)
	case "rm":
		if err := need(1); err != nil {
			return err
		}
		res, err := engine.SoftDelete(ctx, args[0], r.s.user)
		return r.result(res, err)
	case "restore":
		if err := need(1); err != nil {
			return err
		}
		t, err := engine.Restore(ctx, args[0])
		return r.result(tasksync.Result{Task: t}, err)
	case "purge":
		if err := need(1); err != nil {
			return err
		}
		if err := engine.PermanentDelete(ctx, args[0]); err != nil {
			return err
		}
		r.print(func() { output.Messagef(r.out, "%s удалена безвозвратно", args[0]) })
	case "undo":
		if r.undo == nil {
			return tasksync.ErrUndoExpired
		}
		t, err := r.undo.Invoke(ctx)
		if err != nil {
			return err
		}
		r.undo = nil
		r.print(func() { output.Messagef(r.out, "Отменено: %s %s", t.TaskID, output.StatusLabel(t.Status)) })
	case "dismiss":
		if r.undo != nil {
			r.undo.Dismiss()
			r.undo = nil
		}
	default:
		return fmt.Errorf("неизвестная команда %q", name)
	}
	return nil
}

func (r *repl) result(res tasksync.Result, err error) error {
	if err != nil {
		return err
	}
	if res.Undo != nil {
		r.undo = res.Undo
	}
	r.print(func() {
		output.Messagef(r.out, "%s: %s", res.Task.TaskID, output.StatusLabel(res.Task.Status))
		if res.Undo != nil {
			output.Messagef(r.out, "  undo  отменить")
		}
	})
	return nil
}
