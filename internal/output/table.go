package output

import (
	"fmt"
	"io"
	"strings"

	"taskSync/internal/models/task"
	"taskSync/internal/tasksync"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	trashStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))

	statusStyles = map[task.Status]lipgloss.Style{
		task.StatusRedline:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		task.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		task.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}
)

const maxTitle = 48

func DisableColor() {
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	titleStyle = lipgloss.NewStyle()
	trashStyle = lipgloss.NewStyle()
	statusStyles = map[task.Status]lipgloss.Style{}
}

func TaskTable(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, dimStyle.Render("Задач нет."))
		return
	}

	const pad = 2
	codeW, statusW, titleW, assigneeW := 6, 8, 7, 12
	for _, t := range tasks {
		codeW = max(codeW, len(t.TaskID)+pad)
		statusW = max(statusW, len(t.Status)+pad)
		titleW = max(titleW, min(lipgloss.Width(t.Title)+pad, maxTitle+pad))
		assigneeW = max(assigneeW, lipgloss.Width(assigneeName(t))+pad)
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %s",
		codeW, "CODE", statusW, "STATUS", titleW, "TITLE", assigneeW, "ASSIGNEE", "DUE")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for _, t := range tasks {
		title := truncate(t.Title, maxTitle)
		if t.IsDeleted() {
			title = trashStyle.Render(title)
		}
		row := fmt.Sprintf("%s %s %s %s %s",
			padRight(t.TaskID, codeW),
			padRight(StatusLabel(t.Status), statusW),
			padRight(title, titleW),
			padRight(stringOrDash(assigneeName(t)), assigneeW),
			stringOrDash(t.DueDate))
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// Board колонки доски с количеством задач в заголовке
func Board(w io.Writer, groups []tasksync.Group) {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%d)", strings.ToUpper(string(g.Status)), g.Count())))
		if g.Count() == 0 {
			fmt.Fprintln(w, "  "+dimStyle.Render("--"))
			continue
		}
		for _, t := range g.Tasks {
			line := "  " + t.TaskID + "  " + truncate(t.Title, maxTitle)
			if name := assigneeName(t); name != "" {
				line += "  " + dimStyle.Render("@"+name)
			}
			fmt.Fprintln(w, line)
		}
	}
}

func TaskDetail(w io.Writer, t *task.Task) {
	titleLine := fmt.Sprintf("%s: %s", t.TaskID, t.Title)
	fmt.Fprintln(w, titleStyle.Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("-", lipgloss.Width(titleLine)))

	field := func(name, value string) {
		fmt.Fprintf(w, "%-14s %s\n", name+":", stringOrDash(value))
	}
	field("Статус", StatusLabel(t.Status))
	field("Проект", t.ProjectID)
	field("Исполнитель", assigneeName(t))
	field("Соавторы", collaboratorNames(t))
	field("Срок", t.DueDate)
	field("Оценка", t.Estimate)
	field("Автор", t.CreatedBy)
	field("Создана", t.CreatedDisplay)
	if t.MarkedComplete != nil {
		by := ""
		if t.MarkedCompleteBy != nil {
			by = " (" + *t.MarkedCompleteBy + ")"
		}
		field("Завершена", t.MarkedComplete.Format("2006-01-02 15:04")+by)
	}
	if t.IsDeleted() {
		field("В корзине", trashStyle.Render(t.DeletedAt.Format("2006-01-02 15:04")+" ("+*t.DeletedBy+")"))
	}
	field("Версия", fmt.Sprint(t.Version))

	if t.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, t.Description)
	}
}

func StatusLabel(s task.Status) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}

func assigneeName(t *task.Task) string {
	if t.Assignee == nil {
		return ""
	}
	if t.Assignee.Name != "" {
		return t.Assignee.Name
	}
	return t.Assignee.ID
}

func collaboratorNames(t *task.Task) string {
	names := make([]string, 0, len(t.Collaborators))
	for _, u := range t.Collaborators {
		if u.Name != "" {
			names = append(names, u.Name)
		} else {
			names = append(names, u.ID)
		}
	}
	return strings.Join(names, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func stringOrDash(s string) string {
	if s == "" {
		return dimStyle.Render("--")
	}
	return s
}
