package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/noah-isme/smartsql-client/internal/models"
)

func (a *App) table(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(w, strings.Join(header, "\t"))
	}
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	return w.Flush()
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) empty(what string) {
	a.printf("No %s found.\n", what)
}

func courseRows(courses []models.Course) [][]string {
	rows := make([][]string, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, []string{c.CourseID.String(), c.CourseCode, c.CourseName, fmt.Sprintf("%s %d", c.Term, c.Year), string(c.State)})
	}
	return rows
}

func moduleRows(modules []models.Module) [][]string {
	rows := make([][]string, 0, len(modules))
	for _, m := range modules {
		rows = append(rows, []string{m.ModuleID.String(), m.ModuleName, m.CourseID.String(), fmt.Sprint(m.ExerciseCount)})
	}
	return rows
}

func exerciseRows(exercises []models.Exercise) [][]string {
	rows := make([][]string, 0, len(exercises))
	for _, e := range exercises {
		rows = append(rows, []string{e.ExerciseID.String(), e.Title, string(e.Difficulty), e.ModuleID.String()})
	}
	return rows
}

func messageRows(msgs []models.Message) [][]string {
	rows := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, []string{m.Timestamp.Local().Format(time.DateTime), string(m.Type), m.SenderName, truncate(m.Content, 60)})
	}
	return rows
}

func fullName(first, last, fallback string) string {
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return fallback
	}
	return name
}

func gradeText(g *float64) string {
	if g == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *g)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
