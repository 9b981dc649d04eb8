// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskboard/internal/service"
)

const (
	markDone = "[x]"
	markOpen = "[ ]"
)

// FormatTask formats one task line.
// Format: "{N:>4}  [x] {DUE}  {TITLE}\n". A missing due date is padded so
// titles stay aligned.
func FormatTask(w io.Writer, num int, task service.Task) {
	mark := markOpen
	if task.IsCompleted {
		mark = markDone
	}
	due := task.DueDate.String()
	if due == "" {
		due = "----------"
	}
	fmt.Fprintf(w, "%4d  %s %s  %s\n", num, mark, due, normalizeTitle(task.Title))
}

// FormatTasks formats every task, numbered from 1.
func FormatTasks(w io.Writer, tasks []service.Task) {
	for i, t := range tasks {
		FormatTask(w, i+1, t)
	}
}

// FormatRemaining formats the incomplete-task footer.
func FormatRemaining(w io.Writer, n int) {
	if n == 1 {
		fmt.Fprintln(w, "1 item left")
		return
	}
	fmt.Fprintf(w, "%d items left\n", n)
}

// FormatBoard prints the list followed by the remaining count.
// An empty list prints "no tasks found" unless quiet.
func FormatBoard(w io.Writer, tasks []service.Task, remaining int, quiet bool) {
	if len(tasks) == 0 {
		if !quiet {
			fmt.Fprintln(w, "no tasks found")
		}
		return
	}
	FormatTasks(w, tasks)
	FormatRemaining(w, remaining)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
