package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// Scope selects which side of the API the resolver reads.
type Scope int

const (
	ScopeStudent Scope = iota
	ScopeInstructor
)

// ScopeFor maps an identity onto a navigation scope.
func ScopeFor(id models.Identity) (Scope, error) {
	switch id.(type) {
	case models.Instructor:
		return ScopeInstructor, nil
	case models.Student:
		return ScopeStudent, nil
	default:
		return ScopeStudent, appErrors.ErrNotAuthenticated
	}
}

// Level is one tier of the course hierarchy.
type Level int

const (
	LevelNone Level = iota
	LevelCourse
	LevelModule
	LevelExercise
)

func (l Level) String() string {
	switch l {
	case LevelCourse:
		return "course"
	case LevelModule:
		return "module"
	case LevelExercise:
		return "exercise"
	default:
		return "none"
	}
}

// RouteParams are the ids carried by a nested route. Any may be empty.
type RouteParams struct {
	CourseID   models.ID
	ModuleID   models.ID
	ExerciseID models.ID
}

// Breadcrumb is one resolved level of the chain.
type Breadcrumb struct {
	Level Level
	Label string
	Route string
}

// Resolution is the deepest chain that could be resolved. NotFound names the
// first level that failed; nothing below it is fetched or shown.
type Resolution struct {
	Course      *models.Course
	Module      *models.Module
	Exercise    *models.ExerciseDetail
	Modules     []models.Module
	Exercises   []models.Exercise
	Breadcrumbs []Breadcrumb
	NotFound    Level
	Err         error
}

// NavigationService resolves nested course routes through cascading fetches.
type NavigationService struct {
	api    listAPI
	scope  Scope
	logger *zap.Logger
}

// NewNavigationService constructs a resolver for scope.
func NewNavigationService(api listAPI, scope Scope, logger *zap.Logger) *NavigationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NavigationService{api: api, scope: scope, logger: logger}
}

// Resolve walks course → module → exercise. A failed level marks the
// resolution not-found at that level and stops the cascade.
func (s *NavigationService) Resolve(ctx context.Context, params RouteParams) Resolution {
	var res Resolution
	var prefetched *models.ExerciseDetail
	var prefetchErr error
	inferredModule := false

	if !params.ExerciseID.Empty() && (params.CourseID.Empty() || params.ModuleID.Empty()) {
		detail, err := s.exercise(ctx, params.ExerciseID)
		switch {
		case err != nil && params.CourseID.Empty():
			return s.notFound(res, LevelExercise, err)
		case err != nil:
			prefetchErr = err
		default:
			prefetched = &detail
			if params.CourseID.Empty() {
				params.CourseID = detail.CourseID
			}
			if params.ModuleID.Empty() {
				params.ModuleID = detail.ModuleID
				inferredModule = true
			}
		}
	}
	if params.CourseID.Empty() && !params.ModuleID.Empty() && s.scope == ScopeInstructor {
		var module models.Module
		if err := s.getData(ctx, fmt.Sprintf("/instructor/modules/%s/", url.PathEscape(params.ModuleID.String())), &module); err == nil {
			params.CourseID = module.CourseID
		}
	}
	if params.CourseID.Empty() {
		if !params.ModuleID.Empty() {
			return s.notFound(res, LevelCourse, appErrors.Clone(appErrors.ErrNotFound, "course not found"))
		}
		return res
	}

	course, err := s.course(ctx, params.CourseID)
	if err != nil {
		return s.notFound(res, LevelCourse, err)
	}
	res.Course = &course
	res.Breadcrumbs = append(res.Breadcrumbs, Breadcrumb{Level: LevelCourse, Label: course.CourseName, Route: s.route(params.CourseID)})

	modules, err := s.modules(ctx, params.CourseID)
	if err != nil {
		return s.notFound(res, LevelModule, err)
	}
	res.Modules = modules
	if prefetchErr != nil {
		return s.notFound(res, LevelExercise, prefetchErr)
	}
	if params.ModuleID.Empty() {
		if !params.ExerciseID.Empty() {
			return s.notFound(res, LevelExercise, appErrors.Clone(appErrors.ErrNotFound, "exercise has no module"))
		}
		return res
	}

	module, ok := findModule(modules, params.ModuleID)
	if !ok {
		if inferredModule {
			return s.notFound(res, LevelExercise, appErrors.Clone(appErrors.ErrNotFound, "exercise not found in this course"))
		}
		return s.notFound(res, LevelModule, appErrors.Clone(appErrors.ErrNotFound, "module not found"))
	}
	res.Module = &module
	res.Breadcrumbs = append(res.Breadcrumbs, Breadcrumb{Level: LevelModule, Label: module.ModuleName, Route: s.route(params.CourseID, params.ModuleID)})

	exercises, err := s.exercises(ctx, params.CourseID, params.ModuleID)
	if err != nil {
		return s.notFound(res, LevelExercise, err)
	}
	res.Exercises = exercises
	if params.ExerciseID.Empty() {
		return res
	}

	var detail models.ExerciseDetail
	if prefetched != nil {
		detail = *prefetched
	} else if detail, err = s.exercise(ctx, params.ExerciseID); err != nil {
		return s.notFound(res, LevelExercise, err)
	}
	if !detail.ModuleID.Empty() && detail.ModuleID != params.ModuleID {
		return s.notFound(res, LevelExercise, appErrors.Clone(appErrors.ErrNotFound, "exercise not found in this module"))
	}
	if detail.ModuleName == "" {
		detail.ModuleName = module.ModuleName
	}
	if detail.CourseName == "" {
		detail.CourseName = course.CourseName
	}
	res.Exercise = &detail
	res.Breadcrumbs = append(res.Breadcrumbs, Breadcrumb{Level: LevelExercise, Label: detail.Title, Route: s.route(params.CourseID, params.ModuleID, params.ExerciseID)})
	return res
}

// Siblings returns the ids before and after current in list order.
func Siblings(exercises []models.Exercise, current models.ID) (prev, next models.ID) {
	for i, e := range exercises {
		if e.ExerciseID != current {
			continue
		}
		if i > 0 {
			prev = exercises[i-1].ExerciseID
		}
		if i+1 < len(exercises) {
			next = exercises[i+1].ExerciseID
		}
		return prev, next
	}
	return "", ""
}

func (s *NavigationService) notFound(res Resolution, level Level, err error) Resolution {
	res.NotFound = level
	res.Err = err
	s.logger.Debug("navigation level unresolved", zap.Stringer("level", level), zap.Error(err))
	return res
}

func (s *NavigationService) course(ctx context.Context, id models.ID) (models.Course, error) {
	if s.scope == ScopeInstructor {
		var course models.Course
		if err := s.getData(ctx, fmt.Sprintf("/instructor/courses/%s/", url.PathEscape(id.String())), &course); err != nil {
			return models.Course{}, err
		}
		if course.CourseID.Empty() {
			return models.Course{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return course, nil
	}
	var courses []models.Course
	if err := s.getList(ctx, "/student/courses/", "courses", &courses); err != nil {
		return models.Course{}, err
	}
	for _, c := range courses {
		if c.CourseID == id {
			return c, nil
		}
	}
	return models.Course{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
}

func (s *NavigationService) modules(ctx context.Context, courseID models.ID) ([]models.Module, error) {
	var path string
	if s.scope == ScopeInstructor {
		path = fmt.Sprintf("/instructor/courses/%s/modules/", url.PathEscape(courseID.String()))
	} else {
		path = fmt.Sprintf("/student/courses/%s/modules/", url.PathEscape(courseID.String()))
	}
	var modules []models.Module
	if err := s.getList(ctx, path, "modules", &modules); err != nil {
		return nil, err
	}
	for i := range modules {
		if modules[i].CourseID.Empty() {
			modules[i].CourseID = courseID
		}
	}
	return modules, nil
}

func (s *NavigationService) exercises(ctx context.Context, courseID, moduleID models.ID) ([]models.Exercise, error) {
	var path string
	if s.scope == ScopeInstructor {
		path = fmt.Sprintf("/instructor/modules/%s/exercises/", url.PathEscape(moduleID.String()))
	} else {
		path = fmt.Sprintf("/student/courses/%s/modules/%s/exercises/", url.PathEscape(courseID.String()), url.PathEscape(moduleID.String()))
	}
	var exercises []models.Exercise
	if err := s.getList(ctx, path, "exercises", &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

func (s *NavigationService) exercise(ctx context.Context, id models.ID) (models.ExerciseDetail, error) {
	prefix := "/student/exercises/"
	if s.scope == ScopeInstructor {
		prefix = "/instructor/exercises/"
	}
	var detail models.ExerciseDetail
	if err := s.getData(ctx, prefix+url.PathEscape(id.String())+"/", &detail); err != nil {
		return models.ExerciseDetail{}, err
	}
	if detail.ExerciseID.Empty() {
		return models.ExerciseDetail{}, appErrors.Clone(appErrors.ErrNotFound, "exercise not found")
	}
	return detail, nil
}

func (s *NavigationService) getData(ctx context.Context, path string, out interface{}) error {
	var raw json.RawMessage
	if err := s.api.Get(ctx, path, nil, &raw); err != nil {
		return err
	}
	return gateway.DecodeData(raw, out)
}

func (s *NavigationService) getList(ctx context.Context, path, key string, out interface{}) error {
	var raw json.RawMessage
	if err := s.api.Get(ctx, path, nil, &raw); err != nil {
		return err
	}
	return gateway.DecodeCollection(raw, key, out)
}

func (s *NavigationService) route(ids ...models.ID) string {
	base := RouteStudentHome
	if s.scope == ScopeInstructor {
		base = RouteInstructorHome
	}
	segments := []string{"courses", "modules", "exercises"}
	route := base
	for i, id := range ids {
		route += "/" + segments[i] + "/" + url.PathEscape(id.String())
	}
	return route
}

func findModule(modules []models.Module, id models.ID) (models.Module, bool) {
	for _, m := range modules {
		if m.ModuleID == id {
			return m, true
		}
	}
	return models.Module{}, false
}
