package main

import (
	"os"

	"taskSync/internal/output"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete CODE",
	Aliases: []string{"rm"},
	Short:   "Переместить задачу в корзину",
	Long:    `Мягкое удаление: задача остаётся на сервере и видна в корзине, пока её не восстановят или не удалят безвозвратно.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.engine.SoftDelete(ctx, args[0], s.user)
		if err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, res.Task)
		}
		output.Messagef(os.Stdout, "%s в корзине; восстановить: tasks restore %s", res.Task.TaskID, res.Task.TaskID)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore CODE",
	Short: "Достать задачу из корзины",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		restored, err := s.engine.Restore(ctx, args[0])
		if err != nil {
			return err
		}
		return printTask(restored)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge CODE",
	Short: "Удалить задачу из корзины безвозвратно",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		if err := s.engine.PermanentDelete(ctx, args[0]); err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, map[string]any{"task_id": args[0], "purged": true})
		}
		output.Messagef(os.Stdout, "%s удалена безвозвратно", args[0])
		return nil
	},
}

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Задачи в корзине",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		return printTasks(s.store.TrashOnly())
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd, restoreCmd, purgeCmd, trashCmd)
}
