package main

import (
	"taskSync/internal/models/task"

	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign CODE USER_ID",
	Short: "Назначить исполнителя",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.engine.Assign(ctx, args[0], &task.User{ID: args[1], Name: name})
		if err != nil {
			return err
		}
		return printTask(res.Task)
	},
}

var unassignCmd = &cobra.Command{
	Use:   "unassign CODE",
	Short: "Снять исполнителя",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.engine.Assign(ctx, args[0], nil)
		if err != nil {
			return err
		}
		return printTask(res.Task)
	},
}

var collabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Соавторы задачи",
}

var collabAddCmd = &cobra.Command{
	Use:   "add CODE USER_ID",
	Short: "Добавить соавтора",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.engine.AddCollaborator(ctx, args[0], task.User{ID: args[1], Name: name})
		if err != nil {
			return err
		}
		return printTask(res.Task)
	},
}

var collabRemoveCmd = &cobra.Command{
	Use:     "remove CODE USER_ID",
	Aliases: []string{"rm"},
	Short:   "Убрать соавтора",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.engine.RemoveCollaborator(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printTask(res.Task)
	},
}

func init() {
	assignCmd.Flags().String("name", "", "отображаемое имя")
	collabAddCmd.Flags().String("name", "", "отображаемое имя")

	collabCmd.AddCommand(collabAddCmd, collabRemoveCmd)
	rootCmd.AddCommand(assignCmd, unassignCmd, collabCmd)
}
