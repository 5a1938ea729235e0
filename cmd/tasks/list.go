package main

import (
	"errors"
	"os"

	"taskSync/internal/models/task"
	"taskSync/internal/output"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Активные задачи",
	Long:    `Показывает задачи вне архива и корзины. С --all выводит весь снимок, с --mine только задачи, которые видит пользователь.`,
	RunE:    runList,
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Доска по статусам",
	RunE:  runBoard,
}

var showCmd = &cobra.Command{
	Use:   "show CODE",
	Short: "Карточка задачи",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		t, ok := s.store.Get(args[0])
		if !ok {
			return errNotFound(args[0])
		}
		return printTask(t)
	},
}

func init() {
	listCmd.Flags().Bool("all", false, "все задачи, включая архив и корзину")
	listCmd.Flags().Bool("mine", false, "только видимые текущему пользователю")
	boardCmd.Flags().Bool("mine", false, "только видимые текущему пользователю")
	rootCmd.AddCommand(listCmd, boardCmd, showCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx, s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")
	mine, _ := cmd.Flags().GetBool("mine")

	view := s.store.ActiveOnly
	if all {
		view = s.store.All
	}
	tasks := view()
	if mine {
		if s.user == "" {
			return errors.New("--mine требует --user или gateway.user")
		}
		tasks = s.store.VisibleTo(ctx, s.filter, s.user, view)
	}
	return printTasks(tasks)
}

func runBoard(cmd *cobra.Command, _ []string) error {
	ctx, s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	groups := s.store.GroupByStatus()
	if mine, _ := cmd.Flags().GetBool("mine"); mine {
		for i := range groups {
			groups[i].Tasks = s.filter.Visible(ctx, groups[i].Tasks, s.user)
		}
	}

	if outputFormat() == output.FormatJSON {
		type column struct {
			Status task.Status  `json:"status"`
			Count  int          `json:"count"`
			Tasks  []*task.Task `json:"tasks"`
		}
		cols := make([]column, 0, len(groups))
		for _, g := range groups {
			cols = append(cols, column{Status: g.Status, Count: g.Count(), Tasks: g.Tasks})
		}
		return output.JSON(os.Stdout, cols)
	}
	output.Board(os.Stdout, groups)
	return nil
}
