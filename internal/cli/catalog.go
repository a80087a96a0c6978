package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/service"
)

// load runs one synchronous fetch through a list controller.
func load[T any](ctx context.Context, a *App, resource service.Resource[T], filters map[string]string) ([]T, error) {
	list := service.NewListController(a.client, resource, service.ListOptions{
		Debounce: a.cfg.Lists.SearchDebounce,
		Filters:  filters,
		Logger:   a.logger,
	})
	defer list.Close()
	state, err := list.Load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Items, nil
}

func nonEmpty(pairs ...string) map[string]string {
	out := make(map[string]string)
	for i := 0; i+1 < len(pairs); i += 2 {
		if v := strings.TrimSpace(pairs[i+1]); v != "" {
			out[pairs[i]] = v
		}
	}
	return out
}

func runCourses(ctx context.Context, a *App, args []string) error {
	if len(args) > 0 && isVerb(args[0]) {
		return courseManager().run(ctx, a, args[0], args[1:])
	}
	fs := newFlags("courses", a)
	search := fs.String("search", "", "filter by name or code")
	sortBy := fs.String("sort", "", "sort field, prefix - for descending")
	if err := parse(fs, args); err != nil {
		return err
	}
	resource := service.StudentCourseResource()
	if a.isInstructor() {
		resource = service.CourseResource()
	}
	courses, err := load(ctx, a, resource, nonEmpty(service.FilterSearch, *search, "sort", *sortBy))
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		a.empty("courses")
		return nil
	}
	return a.table([]string{"ID", "CODE", "NAME", "TERM", "STATE"}, courseRows(courses))
}

func runModules(ctx context.Context, a *App, args []string) error {
	if len(args) > 0 && isVerb(args[0]) {
		return moduleManager().run(ctx, a, args[0], args[1:])
	}
	fs := newFlags("modules", a)
	course := fs.String("course", "", "course id")
	search := fs.String("search", "", "filter by name")
	if err := parse(fs, args); err != nil {
		return err
	}
	var modules []models.Module
	if a.isInstructor() {
		var err error
		modules, err = load(ctx, a, service.ModuleResource(), nonEmpty("course_id", *course, service.FilterSearch, *search))
		if err != nil {
			return err
		}
	} else {
		if *course == "" {
			return fmt.Errorf("%w: modules --course <id>", ErrUsage)
		}
		res := a.navigation().Resolve(ctx, service.RouteParams{CourseID: models.ID(*course)})
		if res.Err != nil {
			return res.Err
		}
		modules = res.Modules
	}
	if len(modules) == 0 {
		a.empty("modules")
		return nil
	}
	return a.table([]string{"ID", "NAME", "COURSE", "EXERCISES"}, moduleRows(modules))
}

func runExercises(ctx context.Context, a *App, args []string) error {
	if len(args) > 0 && isVerb(args[0]) {
		return exerciseManager().run(ctx, a, args[0], args[1:])
	}
	fs := newFlags("exercises", a)
	module := fs.String("module", "", "module id")
	course := fs.String("course", "", "course id")
	difficulty := fs.String("difficulty", "", "Easy, Medium or Hard")
	search := fs.String("search", "", "filter by title")
	sortBy := fs.String("sort", "", "sort field, prefix - for descending")
	if err := parse(fs, args); err != nil {
		return err
	}
	var exercises []models.Exercise
	if a.isInstructor() {
		var err error
		exercises, err = load(ctx, a, service.ExerciseResource(), nonEmpty(
			"module_id", *module, "course_id", *course, "difficulty", *difficulty,
			service.FilterSearch, *search, "sort", *sortBy,
		))
		if err != nil {
			return err
		}
	} else {
		if *course == "" || *module == "" {
			return fmt.Errorf("%w: exercises --course <id> --module <id>", ErrUsage)
		}
		res := a.navigation().Resolve(ctx, service.RouteParams{CourseID: models.ID(*course), ModuleID: models.ID(*module)})
		if res.Err != nil {
			return res.Err
		}
		exercises = res.Exercises
	}
	if len(exercises) == 0 {
		a.empty("exercises")
		return nil
	}
	return a.table([]string{"ID", "TITLE", "DIFFICULTY", "MODULE"}, exerciseRows(exercises))
}

func (a *App) navigation() *service.NavigationService {
	return service.NewNavigationService(a.client, a.scope(), a.logger)
}

func runNav(ctx context.Context, a *App, args []string) error {
	fs := newFlags("nav", a)
	course := fs.String("course", "", "course id")
	module := fs.String("module", "", "module id")
	exercise := fs.String("exercise", "", "exercise id")
	if err := parse(fs, args); err != nil {
		return err
	}
	res := a.navigation().Resolve(ctx, service.RouteParams{
		CourseID: models.ID(*course), ModuleID: models.ID(*module), ExerciseID: models.ID(*exercise),
	})
	crumbs := make([]string, 0, len(res.Breadcrumbs))
	for _, b := range res.Breadcrumbs {
		crumbs = append(crumbs, b.Label)
	}
	if len(crumbs) > 0 {
		a.printf("%s\n", strings.Join(crumbs, " > "))
	}
	if res.NotFound != service.LevelNone {
		a.printf("%s not found.\n", res.NotFound)
		return res.Err
	}
	switch {
	case res.Exercise != nil:
		printExercise(a, *res.Exercise)
		prev, next := service.Siblings(res.Exercises, res.Exercise.ExerciseID)
		a.printf("Previous: %s  Next: %s\n", orDash(prev), orDash(next))
	case res.Module != nil:
		return a.table([]string{"ID", "TITLE", "DIFFICULTY", "MODULE"}, exerciseRows(res.Exercises))
	case res.Course != nil:
		return a.table([]string{"ID", "NAME", "COURSE", "EXERCISES"}, moduleRows(res.Modules))
	default:
		return fmt.Errorf("%w: nav needs --course, --module or --exercise", ErrUsage)
	}
	return nil
}

func orDash(id models.ID) string {
	if id.Empty() {
		return "-"
	}
	return id.String()
}

func printExercise(a *App, e models.ExerciseDetail) {
	a.printf("%s [%s]\n\n%s\n", e.Title, e.Difficulty, e.Description)
	if lines := e.TableSchema.Summary(); len(lines) > 0 {
		a.printf("\nTables:\n")
		for _, l := range lines {
			a.printf("  %s\n", l)
		}
	}
	if e.Completed {
		a.printf("\nCompleted.\n")
	}
}

func runAttempt(ctx context.Context, a *App, args []string) error {
	fs := newFlags("attempt", a)
	answer := fs.String("answer", "", "SQL answer to submit")
	hint := fs.Bool("hint", false, "reveal the hint")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: attempt <exercise-id>", ErrUsage)
	}
	attempt := service.NewAttemptService(a.client, a.metrics, a.logger)
	defer attempt.Close()

	state, err := attempt.Open(ctx, models.ID(fs.Arg(0)))
	if err != nil {
		return err
	}
	detail := *state.Exercise
	if !detail.CourseID.Empty() {
		res := a.navigation().Resolve(ctx, service.RouteParams{CourseID: detail.CourseID, ModuleID: detail.ModuleID})
		attempt.SetSiblings(res.Exercises)
	}
	printExercise(a, detail)
	if *hint {
		if s := attempt.RevealHint(); s.Exercise.Hint != "" {
			a.printf("\nHint: %s\n", s.Exercise.Hint)
		}
	}
	if strings.TrimSpace(*answer) == "" {
		if detail.LastSubmission != nil {
			a.printf("\nLast answer: %s (%s)\n", detail.LastSubmission.Answer, detail.LastSubmission.Verdict())
		}
		return nil
	}
	attempt.SetAnswer(*answer)
	state, err = attempt.Submit(ctx)
	if err != nil {
		return err
	}
	r := state.Result
	a.printf("\n%s. Score: %.0f\n", r.Verdict(), r.Score)
	if r.Message != "" {
		a.printf("%s\n", r.Message)
	}
	if r.AIFeedback != "" {
		a.printf("Feedback: %s\n", r.AIFeedback)
	}
	if !state.Next.Empty() {
		a.printf("Next exercise: %s\n", state.Next)
	}
	return nil
}
