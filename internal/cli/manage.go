package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/service"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

const (
	verbCreate = "create"
	verbEdit   = "edit"
	verbDelete = "delete"
)

func isVerb(arg string) bool {
	return arg == verbCreate || arg == verbEdit || arg == verbDelete
}

// manager drives create, edit and delete of one instructor resource through
// an edit controller whose owning list is reprinted after each write.
type manager[F, T any] struct {
	noun     string
	route    string
	resource service.Resource[T]
	binding  service.FormBinding[F, T]
	// flags registers the form flags and returns a func that copies the
	// flags the user set onto a form.
	flags   func(fs *pflag.FlagSet) func(*F) error
	find    func(ctx context.Context, a *App, list *service.ListController[T], id models.ID) (T, error)
	filters func(F) map[string]string
	headers []string
	rows    func([]T) [][]string
}

func (m manager[F, T]) run(ctx context.Context, a *App, verb string, args []string) error {
	if _, err := a.shell.Guard(a.auth.Current(), m.route, nil); err != nil {
		return err
	}
	fs := newFlags(m.noun+" "+verb, a)
	apply := m.flags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	var id models.ID
	if verb != verbCreate {
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: %ss %s <id>", ErrUsage, m.noun, verb)
		}
		id = models.ID(fs.Arg(0))
	}

	var form F
	if verb == verbCreate {
		form = m.binding.Empty()
		if err := apply(&form); err != nil {
			return err
		}
	}
	var filters map[string]string
	if m.filters != nil && verb == verbCreate {
		filters = m.filters(form)
	}
	list := service.NewListController(a.client, m.resource, service.ListOptions{
		Debounce: a.cfg.Lists.SearchDebounce,
		Filters:  filters,
		Logger:   a.logger,
	})
	defer list.Close()
	edit := service.NewEditController[F, T](a.client, m.resource, m.binding, list, nil, a.logger)

	switch verb {
	case verbCreate:
		edit.OpenCreate()
		if err := edit.Submit(ctx, form); err != nil {
			return err
		}
		a.printf("%s created.\n", titleCase(m.noun))
	case verbEdit:
		entity, err := m.find(ctx, a, list, id)
		if err != nil {
			return err
		}
		form = edit.OpenEdit(entity).Form
		if err := apply(&form); err != nil {
			edit.Cancel()
			return err
		}
		if err := edit.Submit(ctx, form); err != nil {
			return err
		}
		a.printf("%s %s updated.\n", titleCase(m.noun), id)
	case verbDelete:
		entity, err := m.find(ctx, a, list, id)
		if err != nil {
			return err
		}
		if err := edit.Delete(ctx, entity); err != nil {
			return err
		}
		a.printf("%s %s deleted.\n", titleCase(m.noun), id)
	}

	state, err := list.Wait(ctx)
	if err != nil {
		return err
	}
	if state.Status == service.ListError {
		return appErrors.Clone(appErrors.ErrNetwork, state.Error)
	}
	if len(state.Items) == 0 {
		a.empty(m.noun + "s")
		return nil
	}
	return a.table(m.headers, m.rows(state.Items))
}

// findInList loads the owning list and picks the entity with id.
func findInList[T any](ctx context.Context, a *App, list *service.ListController[T], id models.ID) (T, error) {
	var zero T
	state, err := list.Load(ctx)
	if err != nil {
		return zero, err
	}
	for _, item := range state.Items {
		if list.Resource().ID(item) == id {
			return item, nil
		}
	}
	return zero, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", strings.TrimSuffix(list.Resource().Name, "s"), id))
}

func courseManager() manager[models.Course, models.Course] {
	return manager[models.Course, models.Course]{
		noun:     "course",
		route:    "/teacher/courses",
		resource: service.CourseResource(),
		binding: service.FormBinding[models.Course, models.Course]{
			Empty: func() models.Course {
				return models.Course{Year: time.Now().Year(), Term: models.TermFall, State: models.CourseActive}
			},
			FromEntity: func(c models.Course) models.Course { return c },
			ToPayload: func(c models.Course) (models.Course, error) {
				c.CourseName = strings.TrimSpace(c.CourseName)
				c.CourseCode = strings.TrimSpace(c.CourseCode)
				return c, nil
			},
		},
		flags: func(fs *pflag.FlagSet) func(*models.Course) error {
			name := fs.String("name", "", "course name")
			code := fs.String("code", "", "course code")
			year := fs.Int("year", 0, "academic year")
			term := fs.String("term", "", "Spring, Summer or Fall")
			state := fs.String("state", "", "active, completed or archived")
			description := fs.String("description", "", "course description")
			return func(c *models.Course) error {
				if fs.Changed("name") {
					c.CourseName = *name
				}
				if fs.Changed("code") {
					c.CourseCode = *code
				}
				if fs.Changed("year") {
					c.Year = *year
				}
				if fs.Changed("term") {
					c.Term = models.Term(*term)
				}
				if fs.Changed("state") {
					c.State = models.CourseState(*state)
				}
				if fs.Changed("description") {
					c.Description = *description
				}
				return nil
			}
		},
		find:    findInList[models.Course],
		headers: []string{"ID", "CODE", "NAME", "TERM", "STATE"},
		rows:    courseRows,
	}
}

func moduleManager() manager[models.Module, models.Module] {
	return manager[models.Module, models.Module]{
		noun:     "module",
		route:    "/teacher/modules",
		resource: service.ModuleResource(),
		binding:  service.IdentityForm[models.Module](),
		flags: func(fs *pflag.FlagSet) func(*models.Module) error {
			course := fs.String("course", "", "owning course id")
			name := fs.String("name", "", "module name")
			description := fs.String("description", "", "module description")
			return func(m *models.Module) error {
				if fs.Changed("course") {
					m.CourseID = models.ID(*course)
				}
				if fs.Changed("name") {
					m.ModuleName = strings.TrimSpace(*name)
				}
				if fs.Changed("description") {
					m.Description = *description
				}
				return nil
			}
		},
		find: findInList[models.Module],
		filters: func(m models.Module) map[string]string {
			return nonEmpty("course_id", m.CourseID.String())
		},
		headers: []string{"ID", "NAME", "COURSE", "EXERCISES"},
		rows:    moduleRows,
	}
}

func exerciseManager() manager[models.ExerciseForm, models.Exercise] {
	return manager[models.ExerciseForm, models.Exercise]{
		noun:     "exercise",
		route:    "/teacher/sql-exercises",
		resource: service.ExerciseResource(),
		binding:  service.ExerciseForm(),
		flags: func(fs *pflag.FlagSet) func(*models.ExerciseForm) error {
			module := fs.String("module", "", "owning module id")
			title := fs.String("title", "", "exercise title")
			description := fs.String("description", "", "question text")
			hint := fs.String("hint", "", "hint shown on request")
			answer := fs.String("answer", "", "expected SQL answer")
			difficulty := fs.String("difficulty", "", "Easy, Medium or Hard")
			schema := fs.String("schema", "", "table schema as a JSON array")
			schemaFile := fs.String("schema-file", "", "file holding the table schema")
			return func(f *models.ExerciseForm) error {
				if fs.Changed("schema") && fs.Changed("schema-file") {
					return fmt.Errorf("%w: use --schema or --schema-file, not both", ErrUsage)
				}
				if fs.Changed("module") {
					f.ModuleID = models.ID(*module)
				}
				if fs.Changed("title") {
					f.Title = *title
				}
				if fs.Changed("description") {
					f.Description = *description
				}
				if fs.Changed("hint") {
					f.Hint = *hint
				}
				if fs.Changed("answer") {
					f.ExpectedAnswer = *answer
				}
				if fs.Changed("difficulty") {
					f.Difficulty = models.Difficulty(*difficulty)
				}
				if fs.Changed("schema") {
					f.TableSchemaText = *schema
				}
				if fs.Changed("schema-file") {
					raw, err := os.ReadFile(*schemaFile)
					if err != nil {
						return fmt.Errorf("read schema file: %w", err)
					}
					f.TableSchemaText = string(raw)
				}
				return nil
			}
		},
		find: findExercise,
		filters: func(f models.ExerciseForm) map[string]string {
			return nonEmpty("module_id", f.ModuleID.String())
		},
		headers: []string{"ID", "TITLE", "DIFFICULTY", "MODULE"},
		rows:    exerciseRows,
	}
}

// findExercise reads the instructor detail, which carries the expected
// answer and schema that list rows may omit.
func findExercise(ctx context.Context, a *App, _ *service.ListController[models.Exercise], id models.ID) (models.Exercise, error) {
	var raw json.RawMessage
	if err := a.client.Get(ctx, "/instructor/exercises/"+url.PathEscape(id.String())+"/", nil, &raw); err != nil {
		return models.Exercise{}, err
	}
	var ex models.Exercise
	if err := gateway.DecodeData(raw, &ex); err != nil {
		return models.Exercise{}, err
	}
	return ex, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
