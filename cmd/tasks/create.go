package main

import (
	"os"

	"taskSync/internal/models/task"
	"taskSync/internal/output"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create TITLE",
	Aliases: []string{"add"},
	Short:   "Создать задачу",
	Long:    `Создаёт задачу на сервере. Локальная запись появляется только после ответа сервера с id и кодом.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCreate,
}

func init() {
	createCmd.Flags().StringP("description", "d", "", "описание")
	createCmd.Flags().StringP("project", "p", "", "проект")
	createCmd.Flags().String("due", "", "срок")
	createCmd.Flags().String("estimate", "", "оценка")
	createCmd.Flags().StringP("status", "s", "", "статус (по умолчанию redline)")
	createCmd.Flags().String("assignee", "", "id исполнителя")
	createCmd.Flags().String("assignee-name", "", "имя исполнителя")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx, s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	description, _ := cmd.Flags().GetString("description")
	project, _ := cmd.Flags().GetString("project")
	due, _ := cmd.Flags().GetString("due")
	estimate, _ := cmd.Flags().GetString("estimate")
	statusLabel, _ := cmd.Flags().GetString("status")
	assigneeID, _ := cmd.Flags().GetString("assignee")
	assigneeName, _ := cmd.Flags().GetString("assignee-name")

	draft := task.Draft{
		Title:       args[0],
		Description: description,
		ProjectID:   project,
		DueDate:     due,
		Estimate:    estimate,
	}
	if statusLabel != "" {
		st, err := s.labels.Parse(statusLabel)
		if err != nil {
			return err
		}
		draft.Status = st
	}
	if assigneeID != "" {
		draft.Assignee = &task.User{ID: assigneeID, Name: assigneeName}
	}

	created, err := s.engine.Create(ctx, draft)
	if err != nil {
		return err
	}
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, created)
	}
	output.Messagef(os.Stdout, "Создана задача %s: %s", created.TaskID, created.Title)
	return nil
}
