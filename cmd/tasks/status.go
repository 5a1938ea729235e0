package main

import (
	"os"

	"taskSync/internal/output"
	"taskSync/internal/tasksync"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status CODE STATUS",
	Short: "Перевести задачу в другой статус",
	Long: `Принимает подпись статуса из конфигурации (redline, progress, completed и их синонимы).
Перевод в completed архивирует задачу, выход из completed возвращает её из архива.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.engine.SetStatus(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var completeCmd = &cobra.Command{
	Use:     "complete CODE",
	Aliases: []string{"done"},
	Short:   "Завершить задачу",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.engine.Complete(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var reopenCmd = &cobra.Command{
	Use:     "reopen CODE",
	Aliases: []string{"unarchive"},
	Short:   "Вернуть завершённую задачу в работу",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.engine.Unarchive(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, completeCmd, reopenCmd)
}

// printResult печатает задачу; отмена живёт только внутри процесса, поэтому здесь лишь подсказка
func printResult(res tasksync.Result) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, res.Task)
	}
	output.Messagef(os.Stdout, "%s: %s", res.Task.TaskID, output.StatusLabel(res.Task.Status))
	if res.Undo != nil {
		output.Messagef(os.Stdout, "Отменить можно в режиме watch командой undo")
	}
	return nil
}
