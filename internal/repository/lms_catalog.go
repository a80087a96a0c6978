package repository

import (
	"sort"
	"strings"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// CatalogFilter narrows instructor listings. Zero values match everything.
type CatalogFilter struct {
	CourseID   models.ID
	ModuleID   models.ID
	Difficulty models.Difficulty
	Search     string
	Sort       string
}

func (s *LMSStore) ownedCourseLocked(instructorID, courseID models.ID) (*courseRecord, error) {
	rec, ok := s.courses[courseID]
	if !ok || rec.instructorID != instructorID {
		return nil, notFound("Course")
	}
	return rec, nil
}

func (s *LMSStore) ownedModuleLocked(instructorID, moduleID models.ID) (*models.Module, error) {
	mod, ok := s.modules[moduleID]
	if !ok {
		return nil, notFound("Module")
	}
	if _, err := s.ownedCourseLocked(instructorID, mod.CourseID); err != nil {
		return nil, notFound("Module")
	}
	return mod, nil
}

func (s *LMSStore) ownedExerciseLocked(instructorID, exerciseID models.ID) (*models.Exercise, error) {
	ex, ok := s.exercises[exerciseID]
	if !ok {
		return nil, notFound("Exercise")
	}
	if _, err := s.ownedModuleLocked(instructorID, ex.ModuleID); err != nil {
		return nil, notFound("Exercise")
	}
	return ex, nil
}

func (s *LMSStore) enrolledCountLocked(courseID models.ID) int {
	n := 0
	for _, e := range s.enrollments {
		if e.courseID == courseID && e.status == models.EnrollmentEnrolled {
			n++
		}
	}
	return n
}

func (s *LMSStore) courseViewLocked(rec *courseRecord) models.Course {
	c := rec.Course
	c.EnrolledCount = s.enrolledCountLocked(rec.CourseID)
	return c
}

func (s *LMSStore) moduleViewLocked(mod *models.Module) models.Module {
	m := *mod
	m.ExerciseCount = 0
	for _, ex := range s.exercises {
		if ex.ModuleID == mod.ModuleID {
			m.ExerciseCount++
		}
	}
	return m
}

// InstructorCourses lists the instructor's courses. Sort accepts name,
// -name, year and -year.
func (s *LMSStore) InstructorCourses(instructorID models.ID, filter CatalogFilter) []models.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Course, 0)
	for _, id := range sortedIDs(s.courses) {
		rec := s.courses[id]
		if rec.instructorID != instructorID {
			continue
		}
		if filter.Search != "" && !containsFold(rec.CourseName, filter.Search) && !containsFold(rec.CourseCode, filter.Search) {
			continue
		}
		out = append(out, s.courseViewLocked(rec))
	}
	switch filter.Sort {
	case "name":
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].CourseName) < strings.ToLower(out[j].CourseName) })
	case "-name":
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].CourseName) > strings.ToLower(out[j].CourseName) })
	case "year":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	case "-year":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	}
	return out
}

// InstructorCourse returns one owned course.
func (s *LMSStore) InstructorCourse(instructorID, courseID models.ID) (models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.ownedCourseLocked(instructorID, courseID)
	if err != nil {
		return models.Course{}, err
	}
	return s.courseViewLocked(rec), nil
}

// CreateCourse adds a course owned by the instructor.
func (s *LMSStore) CreateCourse(instructorID models.ID, course models.Course) (models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.courses {
		if strings.EqualFold(rec.CourseCode, course.CourseCode) {
			return models.Course{}, appErrors.Validation("Course could not be created.", map[string]string{"course_code": "A course with this code already exists."})
		}
	}
	course.CourseID = s.nextIDLocked("course")
	course.EnrolledCount = 0
	course.Status = ""
	rec := &courseRecord{Course: course, instructorID: instructorID, createdAt: s.now().UTC()}
	s.courses[course.CourseID] = rec
	return s.courseViewLocked(rec), nil
}

// UpdateCourse replaces an owned course's editable fields.
func (s *LMSStore) UpdateCourse(instructorID, courseID models.ID, course models.Course) (models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.ownedCourseLocked(instructorID, courseID)
	if err != nil {
		return models.Course{}, err
	}
	for id, other := range s.courses {
		if id != courseID && strings.EqualFold(other.CourseCode, course.CourseCode) {
			return models.Course{}, appErrors.Validation("Course could not be updated.", map[string]string{"course_code": "A course with this code already exists."})
		}
	}
	course.CourseID = courseID
	course.EnrolledCount = 0
	course.Status = ""
	rec.Course = course
	return s.courseViewLocked(rec), nil
}

// DeleteCourse removes an owned course with its modules and exercises. A
// course that still has enrolled students is refused.
func (s *LMSStore) DeleteCourse(instructorID, courseID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedCourseLocked(instructorID, courseID); err != nil {
		return err
	}
	if s.enrolledCountLocked(courseID) > 0 {
		return appErrors.Rejection("Cannot delete a course with enrolled students.")
	}
	for id, mod := range s.modules {
		if mod.CourseID == courseID {
			s.deleteModuleLocked(id)
		}
	}
	for key, e := range s.enrollments {
		if e.courseID == courseID {
			delete(s.enrollments, key)
		}
	}
	delete(s.courses, courseID)
	return nil
}

// InstructorModules lists modules of the instructor's courses, optionally
// restricted to one course.
func (s *LMSStore) InstructorModules(instructorID models.ID, filter CatalogFilter) ([]models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !filter.CourseID.Empty() {
		if _, err := s.ownedCourseLocked(instructorID, filter.CourseID); err != nil {
			return nil, err
		}
	}
	out := make([]models.Module, 0)
	for _, id := range sortedIDs(s.modules) {
		mod := s.modules[id]
		if !filter.CourseID.Empty() && mod.CourseID != filter.CourseID {
			continue
		}
		if _, err := s.ownedCourseLocked(instructorID, mod.CourseID); err != nil {
			continue
		}
		if filter.Search != "" && !containsFold(mod.ModuleName, filter.Search) {
			continue
		}
		out = append(out, s.moduleViewLocked(mod))
	}
	return out, nil
}

// InstructorModule returns one owned module.
func (s *LMSStore) InstructorModule(instructorID, moduleID models.ID) (models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mod, err := s.ownedModuleLocked(instructorID, moduleID)
	if err != nil {
		return models.Module{}, err
	}
	return s.moduleViewLocked(mod), nil
}

// CreateModule adds a module to an owned course.
func (s *LMSStore) CreateModule(instructorID models.ID, module models.Module) (models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedCourseLocked(instructorID, module.CourseID); err != nil {
		return models.Module{}, err
	}
	module.ModuleID = s.nextIDLocked("module")
	mod := module
	s.modules[mod.ModuleID] = &mod
	return s.moduleViewLocked(&mod), nil
}

// UpdateModule replaces an owned module. Moving it to another course
// requires owning that course too.
func (s *LMSStore) UpdateModule(instructorID, moduleID models.ID, module models.Module) (models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mod, err := s.ownedModuleLocked(instructorID, moduleID)
	if err != nil {
		return models.Module{}, err
	}
	if _, err := s.ownedCourseLocked(instructorID, module.CourseID); err != nil {
		return models.Module{}, err
	}
	module.ModuleID = moduleID
	*mod = module
	return s.moduleViewLocked(mod), nil
}

// DeleteModule removes an owned module. A module that still has exercises
// is refused.
func (s *LMSStore) DeleteModule(instructorID, moduleID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedModuleLocked(instructorID, moduleID); err != nil {
		return err
	}
	for _, ex := range s.exercises {
		if ex.ModuleID == moduleID {
			return appErrors.Rejection("Cannot delete a module that still has exercises.")
		}
	}
	s.deleteModuleLocked(moduleID)
	return nil
}

func (s *LMSStore) deleteModuleLocked(moduleID models.ID) {
	for id, ex := range s.exercises {
		if ex.ModuleID == moduleID {
			s.deleteExerciseLocked(id)
		}
	}
	delete(s.modules, moduleID)
}

// InstructorExercises lists exercises of the instructor's modules. Sort
// accepts title, -title and difficulty.
func (s *LMSStore) InstructorExercises(instructorID models.ID, filter CatalogFilter) ([]models.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !filter.ModuleID.Empty() {
		if _, err := s.ownedModuleLocked(instructorID, filter.ModuleID); err != nil {
			return nil, err
		}
	}
	out := make([]models.Exercise, 0)
	for _, id := range sortedIDs(s.exercises) {
		ex := s.exercises[id]
		mod, err := s.ownedModuleLocked(instructorID, ex.ModuleID)
		if err != nil {
			continue
		}
		if !filter.ModuleID.Empty() && ex.ModuleID != filter.ModuleID {
			continue
		}
		if !filter.CourseID.Empty() && mod.CourseID != filter.CourseID {
			continue
		}
		if filter.Difficulty != "" && !strings.EqualFold(string(ex.Difficulty), string(filter.Difficulty)) {
			continue
		}
		if filter.Search != "" && !containsFold(ex.Title, filter.Search) && !containsFold(ex.Description, filter.Search) {
			continue
		}
		out = append(out, *ex)
	}
	switch filter.Sort {
	case "title":
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title) })
	case "-title":
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Title) > strings.ToLower(out[j].Title) })
	case "difficulty":
		sort.SliceStable(out, func(i, j int) bool { return difficultyRank(out[i].Difficulty) < difficultyRank(out[j].Difficulty) })
	}
	return out, nil
}

func difficultyRank(d models.Difficulty) int {
	switch d {
	case models.DifficultyEasy:
		return 0
	case models.DifficultyMedium:
		return 1
	default:
		return 2
	}
}

// InstructorExercise returns one owned exercise including its expected answer.
func (s *LMSStore) InstructorExercise(instructorID, exerciseID models.ID) (models.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, err := s.ownedExerciseLocked(instructorID, exerciseID)
	if err != nil {
		return models.Exercise{}, err
	}
	return *ex, nil
}

// CreateExercise adds an exercise to an owned module.
func (s *LMSStore) CreateExercise(instructorID models.ID, exercise models.Exercise) (models.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedModuleLocked(instructorID, exercise.ModuleID); err != nil {
		return models.Exercise{}, err
	}
	exercise.ExerciseID = s.nextIDLocked("exercise")
	exercise.TableSchema = models.NormalizeSchema(exercise.TableSchema)
	ex := exercise
	s.exercises[ex.ExerciseID] = &ex
	return ex, nil
}

// UpdateExercise replaces an owned exercise.
func (s *LMSStore) UpdateExercise(instructorID, exerciseID models.ID, exercise models.Exercise) (models.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, err := s.ownedExerciseLocked(instructorID, exerciseID)
	if err != nil {
		return models.Exercise{}, err
	}
	if _, err := s.ownedModuleLocked(instructorID, exercise.ModuleID); err != nil {
		return models.Exercise{}, err
	}
	exercise.ExerciseID = exerciseID
	exercise.TableSchema = models.NormalizeSchema(exercise.TableSchema)
	*ex = exercise
	return *ex, nil
}

// DeleteExercise removes an owned exercise and every submission made to it.
func (s *LMSStore) DeleteExercise(instructorID, exerciseID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedExerciseLocked(instructorID, exerciseID); err != nil {
		return err
	}
	s.deleteExerciseLocked(exerciseID)
	return nil
}

func (s *LMSStore) deleteExerciseLocked(exerciseID models.ID) {
	for key, sub := range s.latest {
		if sub.exerciseID == exerciseID {
			delete(s.latest, key)
		}
	}
	kept := s.attempts[:0]
	for _, a := range s.attempts {
		if a.exerciseID != exerciseID {
			kept = append(kept, a)
		}
	}
	s.attempts = kept
	logs := s.errorLogs[:0]
	for _, l := range s.errorLogs {
		if l.exerciseID != exerciseID {
			logs = append(logs, l)
		}
	}
	s.errorLogs = logs
	delete(s.exercises, exerciseID)
}
