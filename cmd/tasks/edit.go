package main

import (
	"errors"

	"taskSync/internal/models/task"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit CODE",
	Short: "Изменить поля задачи",
	Long:  `Меняет только переданные флаги. Статус меняется командой status.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().StringP("title", "t", "", "название")
	editCmd.Flags().StringP("description", "d", "", "описание")
	editCmd.Flags().StringP("project", "p", "", "проект")
	editCmd.Flags().String("due", "", "срок")
	editCmd.Flags().String("estimate", "", "оценка")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	var opts []task.PatchOption
	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		opts = append(opts, task.WithTitle(v))
	}
	if cmd.Flags().Changed("description") {
		v, _ := cmd.Flags().GetString("description")
		opts = append(opts, task.WithDescription(v))
	}
	if cmd.Flags().Changed("project") {
		v, _ := cmd.Flags().GetString("project")
		opts = append(opts, task.WithProject(v))
	}
	due, _ := cmd.Flags().GetString("due")
	estimate, _ := cmd.Flags().GetString("estimate")
	opts = append(opts, task.WithDueDate(due), task.WithEstimate(estimate))

	patch := task.NewPatch(opts...)
	if patch.IsEmpty() {
		return errors.New("нечего менять: укажите хотя бы один флаг")
	}

	ctx, s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	res, err := s.engine.Mutate(ctx, args[0], patch)
	if err != nil {
		return err
	}
	return printTask(res.Task)
}
