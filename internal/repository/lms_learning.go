package repository

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// StudentFilter narrows the instructor's student roster.
type StudentFilter struct {
	CourseID  models.ID
	StudentID models.ID
	Search    string
}

// NormalizeAnswer folds the differences grading ignores: case, surrounding
// and repeated whitespace, and trailing semicolons.
func NormalizeAnswer(answer string) string {
	answer = strings.ToLower(strings.TrimSpace(answer))
	answer = strings.TrimRight(answer, "; \t\r\n")
	return strings.Join(strings.Fields(answer), " ")
}

func classifyError(normalized string) string {
	if !strings.HasPrefix(normalized, "select") && !strings.HasPrefix(normalized, "with") {
		return "syntax"
	}
	if !strings.Contains(normalized, " from ") {
		return "syntax"
	}
	return "logic"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func (s *LMSStore) courseOfModuleLocked(moduleID models.ID) models.ID {
	if mod, ok := s.modules[moduleID]; ok {
		return mod.CourseID
	}
	return ""
}

// canAccessLocked reports whether the student may see the course's content.
func (s *LMSStore) canAccessLocked(studentID, courseID models.ID) bool {
	e, ok := s.enrollments[pairKey(studentID, courseID)]
	return ok && (e.status == models.EnrollmentEnrolled || e.status == models.EnrollmentCompleted)
}

func (s *LMSStore) courseExercisesLocked(courseID models.ID) []models.ID {
	ids := make([]models.ID, 0)
	for _, id := range sortedIDs(s.exercises) {
		if s.courseOfModuleLocked(s.exercises[id].ModuleID) == courseID {
			ids = append(ids, id)
		}
	}
	return ids
}

// BrowseCourses lists active courses with the student's enrollment flag.
func (s *LMSStore) BrowseCourses(studentID models.ID) []models.BrowseCourse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BrowseCourse, 0)
	for _, id := range sortedIDs(s.courses) {
		rec := s.courses[id]
		if rec.State != models.CourseActive {
			continue
		}
		entry := models.BrowseCourse{Course: s.courseViewLocked(rec)}
		if _, enrolled := s.enrollments[pairKey(studentID, id)]; enrolled {
			entry.IsEnrolled = true
		}
		for _, mod := range s.modules {
			if mod.CourseID == id {
				entry.TotalModules++
			}
		}
		entry.TotalExercises = len(s.courseExercisesLocked(id))
		out = append(out, entry)
	}
	return out
}

// Enroll adds the student to an active course.
func (s *LMSStore) Enroll(studentID, courseID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.courses[courseID]
	if !ok || rec.State != models.CourseActive {
		return appErrors.Clone(appErrors.ErrValidation, "Course does not exist or has ended.")
	}
	key := pairKey(studentID, courseID)
	if _, exists := s.enrollments[key]; exists {
		return appErrors.Clone(appErrors.ErrValidation, "You are already enrolled in this course.")
	}
	s.enrollments[key] = &enrollmentRecord{
		studentID:  studentID,
		courseID:   courseID,
		status:     models.EnrollmentEnrolled,
		enrolledAt: s.now().UTC(),
	}
	return nil
}

// StudentCourses lists the courses the student is enrolled in, each with
// the enrollment status.
func (s *LMSStore) StudentCourses(studentID models.ID) []models.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Course, 0)
	for _, id := range sortedIDs(s.courses) {
		e, ok := s.enrollments[pairKey(studentID, id)]
		if !ok {
			continue
		}
		course := s.courseViewLocked(s.courses[id])
		course.Status = string(e.status)
		out = append(out, course)
	}
	return out
}

// StudentModules lists a course's modules for an enrolled student.
func (s *LMSStore) StudentModules(studentID, courseID models.ID) ([]models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.courses[courseID]; !ok {
		return nil, notFound("Course")
	}
	if !s.canAccessLocked(studentID, courseID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "You are not enrolled in this course.")
	}
	out := make([]models.Module, 0)
	for _, id := range sortedIDs(s.modules) {
		if s.modules[id].CourseID == courseID {
			out = append(out, s.moduleViewLocked(s.modules[id]))
		}
	}
	return out, nil
}

// StudentExercises lists a module's exercises for an enrolled student.
// Expected answers are never included.
func (s *LMSStore) StudentExercises(studentID, courseID, moduleID models.ID) ([]models.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.canAccessLocked(studentID, courseID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "You are not enrolled in this course.")
	}
	mod, ok := s.modules[moduleID]
	if !ok || mod.CourseID != courseID {
		return nil, notFound("Module")
	}
	out := make([]models.Exercise, 0)
	for _, id := range sortedIDs(s.exercises) {
		ex := *s.exercises[id]
		if ex.ModuleID != moduleID {
			continue
		}
		ex.ExpectedAnswer = ""
		out = append(out, ex)
	}
	return out, nil
}

// ExerciseDetail returns one exercise with its course and module names and
// the student's last submission.
func (s *LMSStore) ExerciseDetail(studentID, exerciseID models.ID) (models.ExerciseDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.exercises[exerciseID]
	if !ok {
		return models.ExerciseDetail{}, notFound("Exercise")
	}
	courseID := s.courseOfModuleLocked(ex.ModuleID)
	if !s.canAccessLocked(studentID, courseID) {
		return models.ExerciseDetail{}, appErrors.Clone(appErrors.ErrForbidden, "You are not enrolled in the course containing this exercise.")
	}
	detail := models.ExerciseDetail{Exercise: *ex, CourseID: courseID}
	detail.ExpectedAnswer = ""
	if mod, ok := s.modules[ex.ModuleID]; ok {
		detail.ModuleName = mod.ModuleName
	}
	if c, ok := s.courses[courseID]; ok {
		detail.CourseName = c.CourseName
	}
	if sub, ok := s.latest[pairKey(studentID, exerciseID)]; ok {
		result := sub.result
		detail.LastSubmission = &result
		detail.Completed = models.Flag(result.IsCorrect)
	}
	return detail, nil
}

// Submit grades an answer by normalized text comparison and records the
// attempt. Incorrect answers are also written to the error log.
func (s *LMSStore) Submit(studentID, exerciseID models.ID, answer string) (models.SubmissionResult, error) {
	if strings.TrimSpace(answer) == "" {
		return models.SubmissionResult{}, appErrors.Validation("Please provide an answer.", map[string]string{"answer": "is required"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.exercises[exerciseID]
	if !ok {
		return models.SubmissionResult{}, notFound("Exercise")
	}
	if !s.canAccessLocked(studentID, s.courseOfModuleLocked(ex.ModuleID)) {
		return models.SubmissionResult{}, appErrors.Clone(appErrors.ErrForbidden, "You are not enrolled in the course containing this exercise.")
	}

	normalized := NormalizeAnswer(answer)
	result := models.SubmissionResult{Answer: answer}
	if normalized == NormalizeAnswer(ex.ExpectedAnswer) {
		result.IsCorrect = true
		result.Score = 100
		result.Message = "Correct! Well done."
	} else {
		result.Message = "Your query does not return the expected result."
		result.AIFeedback = feedbackFor(ex, normalized)
	}

	now := s.now().UTC()
	rec := submissionRecord{studentID: studentID, exerciseID: exerciseID, result: result, at: now}
	s.attempts = append(s.attempts, rec)
	s.latest[pairKey(studentID, exerciseID)] = &rec
	if !result.IsCorrect {
		s.errorLogs = append(s.errorLogs, errorLogRecord{
			studentID:  studentID,
			exerciseID: exerciseID,
			entry: models.ErrorLog{
				QuestionText: ex.Title,
				ErrorType:    classifyError(normalized),
				Feedback:     result.AIFeedback,
			},
			at: now,
		})
	}
	return result, nil
}

func feedbackFor(ex *models.Exercise, normalized string) string {
	var b strings.Builder
	switch classifyError(normalized) {
	case "syntax":
		b.WriteString("The query is not a complete SELECT statement.")
	default:
		b.WriteString("The query runs but selects different rows or columns than asked.")
	}
	if len(ex.TableSchema) > 0 {
		b.WriteString(" Available tables: ")
		b.WriteString(strings.Join(ex.TableSchema.Summary(), "; "))
		b.WriteString(".")
	}
	if ex.Hint != "" {
		b.WriteString(" Hint: ")
		b.WriteString(ex.Hint)
	}
	return b.String()
}

// Progress summarises the student's standing in every enrolled course.
func (s *LMSStore) Progress(studentID models.ID) []models.ProgressSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progressLocked(studentID)
}

func (s *LMSStore) progressLocked(studentID models.ID) []models.ProgressSummary {
	out := make([]models.ProgressSummary, 0)
	for _, courseID := range sortedIDs(s.courses) {
		if _, ok := s.enrollments[pairKey(studentID, courseID)]; !ok {
			continue
		}
		exercises := s.courseExercisesLocked(courseID)
		inCourse := make(map[models.ID]bool, len(exercises))
		for _, id := range exercises {
			inCourse[id] = true
		}
		summary := models.ProgressSummary{CourseName: s.courses[courseID].CourseName, TotalExercises: len(exercises)}
		for _, id := range exercises {
			if sub, ok := s.latest[pairKey(studentID, id)]; ok && sub.result.IsCorrect {
				summary.CompletedQuestions++
			}
		}
		attempts, correct := 0, 0
		for _, a := range s.attempts {
			if a.studentID == studentID && inCourse[a.exerciseID] {
				attempts++
				if a.result.IsCorrect {
					correct++
				}
			}
		}
		if summary.TotalExercises > 0 {
			summary.CompletionPercentage = round1(float64(summary.CompletedQuestions) * 100 / float64(summary.TotalExercises))
		}
		if attempts > 0 {
			summary.AccuracyRate = round1(float64(correct) * 100 / float64(attempts))
		}
		out = append(out, summary)
	}
	return out
}

// KnowledgeGraphs derives weak areas per course: modules holding exercises
// the student attempted but has not solved yet.
func (s *LMSStore) KnowledgeGraphs(studentID models.ID) []models.KnowledgeGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.knowledgeGraphsLocked(studentID)
}

func (s *LMSStore) knowledgeGraphsLocked(studentID models.ID) []models.KnowledgeGraph {
	weak := make(map[models.ID]map[string]bool)
	for _, sub := range s.latest {
		if sub.studentID != studentID || sub.result.IsCorrect {
			continue
		}
		ex, ok := s.exercises[sub.exerciseID]
		if !ok {
			continue
		}
		mod, ok := s.modules[ex.ModuleID]
		if !ok {
			continue
		}
		if weak[mod.CourseID] == nil {
			weak[mod.CourseID] = make(map[string]bool)
		}
		weak[mod.CourseID][mod.ModuleName] = true
	}
	out := make([]models.KnowledgeGraph, 0, len(weak))
	for _, courseID := range sortedIDs(weak) {
		areas := make([]string, 0, len(weak[courseID]))
		for name := range weak[courseID] {
			areas = append(areas, name)
		}
		sort.Strings(areas)
		out = append(out, models.KnowledgeGraph{
			WeakAreas:   areas,
			Suggestions: "Revisit the " + strings.Join(areas, ", ") + " exercises and compare your result sets with the task.",
		})
	}
	return out
}

// ErrorLogs returns the student's mistakes, newest first, with counts per
// error type.
func (s *LMSStore) ErrorLogs(studentID models.ID) ([]models.ErrorLog, map[string]int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorLogsLocked(studentID)
}

func (s *LMSStore) errorLogsLocked(studentID models.ID) ([]models.ErrorLog, map[string]int) {
	logs := make([]models.ErrorLog, 0)
	summary := make(map[string]int)
	for i := len(s.errorLogs) - 1; i >= 0; i-- {
		rec := s.errorLogs[i]
		if rec.studentID != studentID {
			continue
		}
		logs = append(logs, rec.entry)
		summary[rec.entry.ErrorType]++
	}
	return logs, summary
}

func (s *LMSStore) teachesLocked(instructorID, studentID models.ID) bool {
	for _, e := range s.enrollments {
		if e.studentID != studentID {
			continue
		}
		if rec, ok := s.courses[e.courseID]; ok && rec.instructorID == instructorID {
			return true
		}
	}
	return false
}

// EnsureTeaches refuses access to a student outside the instructor's courses.
func (s *LMSStore) EnsureTeaches(instructorID, studentID models.ID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[studentID]; !ok {
		return notFound("Student")
	}
	if !s.teachesLocked(instructorID, studentID) {
		return appErrors.Clone(appErrors.ErrForbidden, "This student is not enrolled in any of your courses.")
	}
	return nil
}

// Students lists students enrolled in the instructor's courses, each with
// their enrollments in those courses.
func (s *LMSStore) Students(instructorID models.ID, filter StudentFilter) []models.StudentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byStudent := make(map[models.ID][]models.Enrollment)
	for _, courseID := range sortedIDs(s.courses) {
		rec := s.courses[courseID]
		if rec.instructorID != instructorID {
			continue
		}
		if !filter.CourseID.Empty() && courseID != filter.CourseID {
			continue
		}
		for _, e := range s.enrollments {
			if e.courseID != courseID {
				continue
			}
			byStudent[e.studentID] = append(byStudent[e.studentID], models.Enrollment{
				StudentID:  e.studentID,
				CourseID:   courseID,
				CourseName: rec.CourseName,
				Status:     e.status,
				Grade:      e.grade,
			})
		}
	}
	out := make([]models.StudentRecord, 0, len(byStudent))
	for _, id := range sortedIDs(byStudent) {
		if !filter.StudentID.Empty() && id != filter.StudentID {
			continue
		}
		u, ok := s.users[id]
		if !ok {
			continue
		}
		record := models.StudentRecord{
			UserID:    id,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Courses:   byStudent[id],
		}
		if filter.Search != "" && !containsFold(record.DisplayName(), filter.Search) &&
			!containsFold(u.Username, filter.Search) && !containsFold(u.Email, filter.Search) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// UpdateGrade sets the grade of one enrollment in an owned course.
func (s *LMSStore) UpdateGrade(instructorID models.ID, update models.GradeUpdate) (models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, err := s.ownedCourseLocked(instructorID, update.CourseID)
	if err != nil {
		return models.Enrollment{}, err
	}
	e, ok := s.enrollments[pairKey(update.StudentID, update.CourseID)]
	if !ok {
		return models.Enrollment{}, notFound("Enrollment")
	}
	grade := update.Grade
	e.grade = &grade
	return models.Enrollment{
		StudentID:  e.studentID,
		CourseID:   e.courseID,
		CourseName: course.CourseName,
		Status:     e.status,
		Grade:      e.grade,
	}, nil
}

// StudentDashboard summarises the student's courses and recent work.
func (s *LMSStore) StudentDashboard(studentID models.ID) (models.StudentDashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[studentID]
	if !ok {
		return models.StudentDashboard{}, notFound("User")
	}
	dash := models.StudentDashboard{
		User: map[string]interface{}{
			"user_id":    u.UserID,
			"username":   u.Username,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"email":      u.Email,
		},
		RecentCourses:   make([]map[string]interface{}, 0),
		RecentExercises: make([]map[string]interface{}, 0),
	}

	counts := map[models.EnrollmentStatus]int{}
	enrolled := make([]*enrollmentRecord, 0)
	for _, e := range s.enrollments {
		if e.studentID == studentID {
			counts[e.status]++
			enrolled = append(enrolled, e)
		}
	}
	sort.Slice(enrolled, func(i, j int) bool { return enrolled[i].enrolledAt.After(enrolled[j].enrolledAt) })
	dash.CourseStats = map[string]interface{}{
		"total_courses":     len(enrolled),
		"active_courses":    counts[models.EnrollmentEnrolled],
		"completed_courses": counts[models.EnrollmentCompleted],
	}
	for i, e := range enrolled {
		if i == 5 {
			break
		}
		dash.RecentCourses = append(dash.RecentCourses, map[string]interface{}{
			"course_id":   e.courseID,
			"course_name": s.courses[e.courseID].CourseName,
			"status":      e.status,
			"grade":       e.grade,
		})
	}

	solved, attempted := 0, 0
	for _, sub := range s.latest {
		if sub.studentID != studentID {
			continue
		}
		attempted++
		if sub.result.IsCorrect {
			solved++
		}
	}
	total := 0
	for _, e := range enrolled {
		total += len(s.courseExercisesLocked(e.courseID))
	}
	dash.ExerciseStats = map[string]interface{}{
		"total_exercises":     total,
		"attempted_exercises": attempted,
		"completed_exercises": solved,
	}
	for i := len(s.attempts) - 1; i >= 0 && len(dash.RecentExercises) < 5; i-- {
		a := s.attempts[i]
		if a.studentID != studentID {
			continue
		}
		ex, ok := s.exercises[a.exerciseID]
		if !ok {
			continue
		}
		dash.RecentExercises = append(dash.RecentExercises, map[string]interface{}{
			"exercise_id":  ex.ExerciseID,
			"title":        ex.Title,
			"is_correct":   a.result.IsCorrect,
			"completed_at": a.at,
		})
	}
	return dash, nil
}

// InstructorDashboard summarises the instructor's teaching load.
func (s *LMSStore) InstructorDashboard(instructorID models.ID) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	courses, modules, exercises := 0, 0, 0
	students := make(map[models.ID]bool)
	owned := make(map[models.ID]bool)
	for id, rec := range s.courses {
		if rec.instructorID == instructorID {
			courses++
			owned[id] = true
		}
	}
	for _, mod := range s.modules {
		if owned[mod.CourseID] {
			modules++
		}
	}
	inScope := make(map[models.ID]bool)
	for id, ex := range s.exercises {
		if owned[s.courseOfModuleLocked(ex.ModuleID)] {
			exercises++
			inScope[id] = true
		}
	}
	for _, e := range s.enrollments {
		if owned[e.courseID] && e.status == models.EnrollmentEnrolled {
			students[e.studentID] = true
		}
	}
	submissions, correct := 0, 0
	for _, a := range s.attempts {
		if inScope[a.exerciseID] {
			submissions++
			if a.result.IsCorrect {
				correct++
			}
		}
	}
	accuracy := 0.0
	if submissions > 0 {
		accuracy = round1(float64(correct) * 100 / float64(submissions))
	}
	return map[string]interface{}{
		"total_courses":     courses,
		"total_modules":     modules,
		"total_exercises":   exercises,
		"total_students":    len(students),
		"total_submissions": submissions,
		"accuracy_rate":     accuracy,
	}
}
