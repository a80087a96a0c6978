package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/service"
	"github.com/noah-isme/smartsql-client/pkg/export"
	"github.com/noah-isme/smartsql-client/pkg/storage"
)

func runBrowse(ctx context.Context, a *App, _ []string) error {
	courses, err := service.NewEnrollmentService(a.client, a.logger).Browse(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		a.empty("courses")
		return nil
	}
	rows := make([][]string, 0, len(courses))
	for _, c := range courses {
		enrolled := ""
		if c.IsEnrolled {
			enrolled = "enrolled"
		}
		rows = append(rows, []string{c.CourseID.String(), c.CourseCode, c.CourseName, strconv.Itoa(c.TotalModules), strconv.Itoa(c.TotalExercises), enrolled})
	}
	return a.table([]string{"ID", "CODE", "NAME", "MODULES", "EXERCISES", ""}, rows)
}

func runEnroll(ctx context.Context, a *App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: enroll <course-id>", ErrUsage)
	}
	if err := service.NewEnrollmentService(a.client, a.logger).Enroll(ctx, models.ID(args[0])); err != nil {
		return err
	}
	a.printf("Enrolled in course %s.\n", args[0])
	return nil
}

func runStudents(ctx context.Context, a *App, args []string) error {
	fs := newFlags("students", a)
	course := fs.String("course", "", "course id")
	search := fs.String("search", "", "filter by name, username or email")
	if err := parse(fs, args); err != nil {
		return err
	}
	students, err := load(ctx, a, service.StudentResource(), nonEmpty("course_id", *course, service.FilterSearch, *search))
	if err != nil {
		return err
	}
	if len(students) == 0 {
		a.empty("students")
		return nil
	}
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		courses := make([]string, 0, len(s.Courses))
		for _, e := range s.Courses {
			courses = append(courses, fmt.Sprintf("%s (%s, %s)", e.CourseName, e.Status, gradeText(e.Grade)))
		}
		rows = append(rows, []string{s.UserID.String(), s.Username, fullName(s.FirstName, s.LastName, s.Username), s.Email, strings.Join(courses, "; ")})
	}
	return a.table([]string{"ID", "USERNAME", "NAME", "EMAIL", "COURSES"}, rows)
}

func runGrade(ctx context.Context, a *App, args []string) error {
	fs := newFlags("grade", a)
	student := fs.String("student", "", "student id")
	course := fs.String("course", "", "course id")
	grade := fs.Float64("grade", 0, "grade between 0 and 100")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !fs.Changed("grade") {
		return fmt.Errorf("%w: grade --student <id> --course <id> --grade <n>", ErrUsage)
	}
	edit := service.NewEditController[models.GradeUpdate, models.GradeUpdate](
		a.client, service.GradeResource(), service.IdentityForm[models.GradeUpdate](), nil, nil, a.logger,
	)
	entity := models.GradeUpdate{StudentID: models.ID(*student), CourseID: models.ID(*course)}
	edit.OpenEdit(entity)
	entity.Grade = *grade
	if err := edit.Submit(ctx, entity); err != nil {
		return err
	}
	a.printf("Grade %.1f saved for student %s in course %s.\n", *grade, *student, *course)
	return nil
}

func runExport(ctx context.Context, a *App, args []string) error {
	fs := newFlags("export", a)
	format := fs.String("format", string(export.FormatCSV), "csv or pdf")
	if err := parse(fs, args); err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	dir, err := storage.NewLocalStorage(a.cfg.Export.Dir)
	if err != nil {
		return err
	}
	exports := service.NewExportService(a.client, dir, a.logger, export.NewCSVExporter(), export.NewPDFExporter())
	result, err := exports.Students(ctx, f)
	if err != nil {
		return err
	}
	a.printf("Exported %d students to %s\n", result.Rows, result.Path)
	return nil
}

func runMessages(ctx context.Context, a *App, args []string) error {
	fs := newFlags("messages", a)
	search := fs.String("search", "", "filter by content or sender")
	if err := parse(fs, args); err != nil {
		return err
	}
	var msgs []models.Message
	var err error
	if a.isInstructor() {
		msgs, err = load(ctx, a, service.InstructorMessageResource(), nonEmpty(service.FilterSearch, *search))
	} else {
		msgs, err = load(ctx, a, service.StudentMessageResource(), nonEmpty(service.FilterSearch, *search))
	}
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		a.empty("messages")
		return nil
	}
	return a.table([]string{"WHEN", "TYPE", "FROM", "CONTENT"}, messageRows(msgs))
}

func runSend(ctx context.Context, a *App, args []string) error {
	fs := newFlags("send", a)
	to := fs.String("to", "", "receiver user id")
	course := fs.String("course", "", "course id for an announcement")
	kind := fs.String("type", "", "private or announcement")
	recipients := fs.Bool("recipients", false, "list who you can message")
	if err := parse(fs, args); err != nil {
		return err
	}
	messages := service.NewMessageService(a.client, nil, a.logger)
	if *recipients {
		if !a.isInstructor() {
			return fmt.Errorf("%w: --recipients is for instructors", ErrUsage)
		}
		r, err := messages.Recipients(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(r.Students)+len(r.Courses))
		for _, s := range r.Students {
			rows = append(rows, []string{"student", s.UserID.String(), fullName(s.FirstName, s.LastName, s.Username)})
		}
		for _, c := range r.Courses {
			rows = append(rows, []string{"course", c.CourseID.String(), c.CourseName})
		}
		return a.table([]string{"KIND", "ID", "NAME"}, rows)
	}
	content := strings.Join(fs.Args(), " ")

	if !a.isInstructor() {
		if err := messages.Direct(ctx, models.DirectMessage{ReceiverID: models.ID(*to), Content: content}); err != nil {
			return err
		}
		a.printf("Message sent.\n")
		return nil
	}

	draft := models.MessageDraft{Type: models.MessageType(*kind), Content: content}
	if draft.Type == "" {
		draft.Type = models.MessagePrivate
		if *to == "" {
			draft.Type = models.MessageAnnouncement
		}
	}
	if *to != "" {
		id := models.ID(*to)
		draft.ReceiverID = &id
	}
	if *course != "" {
		id := models.ID(*course)
		draft.CourseID = &id
	}
	if err := messages.Send(ctx, draft); err != nil {
		return err
	}
	a.printf("Message sent.\n")
	return nil
}

func runChat(ctx context.Context, a *App, args []string) error {
	fs := newFlags("chat", a)
	student := fs.String("student", "", "instructor only: answer about this student")
	thoughts := fs.Bool("thoughts", false, "show the assistant's SQL thought process")
	noContext := fs.Bool("no-context", false, "do not send learning context")
	if err := parse(fs, args); err != nil {
		return err
	}
	identity := a.auth.Current().Identity()
	chat := service.NewChatService(a.client, service.NewAPIContextLoader(a.client, a.scope(), a.logger), identity, service.ChatOptions{
		HistoryWindow:  a.cfg.Chat.HistoryWindow,
		IncludeContext: a.cfg.Chat.IncludeContext && !*noContext,
		Metrics:        a.metrics,
		Logger:         a.logger,
	})
	chat.ShowThoughtProcess(*thoughts)
	if *student != "" {
		if err := chat.SelectStudent(ctx, models.ID(*student)); err != nil {
			return err
		}
	}

	if fs.NArg() > 0 {
		return a.ask(ctx, chat, strings.Join(fs.Args(), " "))
	}

	// Interactive mode ends on EOF or when the session is dropped elsewhere.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	unsubscribe := a.auth.Subscribe(func(s models.Session) {
		if !s.Authenticated() {
			cancel()
		}
	})
	defer unsubscribe()
	go a.auth.Watch(ctx, a.cfg.Session.WatchInterval)

	a.printf("Ask a SQL question. Empty line or Ctrl-D to quit.\n")
	for ctx.Err() == nil {
		line, err := a.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			if askErr := a.ask(ctx, chat, line); askErr != nil && ctx.Err() == nil {
				fmt.Fprintln(a.errOut, UserMessage(askErr))
			}
		}
		if errors.Is(err, io.EOF) || (err == nil && line == "") {
			return nil
		}
		if err != nil {
			return err
		}
	}
	a.printf("Session ended.\n")
	return nil
}

func (a *App) ask(ctx context.Context, chat *service.ChatService, question string) error {
	turn, err := chat.Send(ctx, question)
	if err != nil {
		return err
	}
	a.printf("%s\n", turn.Content)
	if tp := chat.LastThoughtProcess(); tp != nil {
		if tp.GeneratedSQL != "" {
			a.printf("  generated: %s\n", tp.GeneratedSQL)
		}
		if tp.ExecutedSQL != "" {
			a.printf("  executed:  %s\n", tp.ExecutedSQL)
		}
		a.printf("  results:   %d\n", tp.ResultsCount)
	}
	return nil
}
