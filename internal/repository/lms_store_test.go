package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// Seeded ids: users 1 instructor, 2 Ana, 3 Sam; courses 1 SQL101 (active),
// 2 SQL201 (active, empty), 3 DB301 (completed); modules 1 Basics and
// 2 Filtering in course 1, 3 Joins in course 2; exercises 1-2 in Basics,
// 3 in Filtering, 4 in Joins.
func seededStore(t *testing.T) *LMSStore {
	t.Helper()
	store := NewLMSStore(LMSStoreOptions{PasswordCost: bcrypt.MinCost})
	require.NoError(t, store.SeedDemoData())
	return store
}

func TestAuthenticate(t *testing.T) {
	store := seededStore(t)

	profile, err := store.Authenticate("Student", DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, models.ID("2"), profile.UserID)
	assert.Equal(t, models.RoleStudent, profile.Role)

	_, err = store.Authenticate("student", "nope")
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	assert.Equal(t, "Wrong credentials or wrong user type", appErrors.FromError(err).Message)

	_, err = store.Authenticate("ghost", DemoPassword)
	assert.Equal(t, "User does not exist", appErrors.FromError(err).Message)
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	store := seededStore(t)
	_, err := store.CreateUser(models.SignupRequest{Username: "STUDENT", Password: "secret1", Email: "sam@smartsql.dev"}, models.RoleStudent)
	require.Error(t, err)
	e := appErrors.FromError(err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Contains(t, e.Fields, "username")
	assert.Contains(t, e.Fields, "email")
}

func TestInstructorOwnership(t *testing.T) {
	store := seededStore(t)
	other, err := store.CreateUser(models.SignupRequest{Username: "other", Password: "secret1", Email: "other@smartsql.dev"}, models.RoleInstructor)
	require.NoError(t, err)

	assert.Empty(t, store.InstructorCourses(other.UserID, CatalogFilter{}))
	_, err = store.InstructorCourse(other.UserID, "1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = store.CreateModule(other.UserID, models.Module{ModuleName: "Sneaky", CourseID: "1"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	courses := store.InstructorCourses("1", CatalogFilter{Sort: "-name"})
	require.Len(t, courses, 3)
	assert.Equal(t, "Introduction to SQL", courses[0].CourseName)
	assert.Equal(t, 2, courses[0].EnrolledCount)
}

func TestDeletePolicies(t *testing.T) {
	store := seededStore(t)

	err := store.DeleteCourse("1", "1")
	assert.True(t, appErrors.IsDomainRejection(err))
	assert.Equal(t, "Cannot delete a course with enrolled students.", appErrors.FromError(err).Message)

	err = store.DeleteModule("1", "1")
	assert.True(t, appErrors.IsDomainRejection(err))

	empty, err := store.CreateModule("1", models.Module{ModuleName: "Scratch", CourseID: "1"})
	require.NoError(t, err)
	require.NoError(t, store.DeleteModule("1", empty.ModuleID))

	require.NoError(t, store.DeleteCourse("1", "2"))
	_, err = store.InstructorModule("1", "3")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	exercises, err := store.InstructorExercises("1", CatalogFilter{})
	require.NoError(t, err)
	assert.Len(t, exercises, 3)
}

func TestInstructorExerciseFilters(t *testing.T) {
	store := seededStore(t)

	easy, err := store.InstructorExercises("1", CatalogFilter{Difficulty: models.DifficultyEasy})
	require.NoError(t, err)
	assert.Len(t, easy, 2)

	found, err := store.InstructorExercises("1", CatalogFilter{Search: "adult"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "SELECT name FROM students WHERE age >= 18;", found[0].ExpectedAnswer)

	byCourse, err := store.InstructorExercises("1", CatalogFilter{CourseID: "2"})
	require.NoError(t, err)
	require.Len(t, byCourse, 1)
	assert.Len(t, byCourse[0].TableSchema, 3)

	sorted, err := store.InstructorExercises("1", CatalogFilter{Sort: "-title"})
	require.NoError(t, err)
	assert.Equal(t, "Students and their courses", sorted[0].Title)

	_, err = store.InstructorExercises("1", CatalogFilter{ModuleID: "99"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentAccessRequiresEnrollment(t *testing.T) {
	store := seededStore(t)

	_, err := store.StudentModules("3", "2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = store.StudentModules("3", "42")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	modules, err := store.StudentModules("2", "1")
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, 2, modules[0].ExerciseCount)

	exercises, err := store.StudentExercises("2", "1", "1")
	require.NoError(t, err)
	require.Len(t, exercises, 2)
	assert.Empty(t, exercises[0].ExpectedAnswer)

	_, err = store.StudentExercises("2", "1", "3")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = store.ExerciseDetail("2", "4")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExerciseDetailCarriesLastSubmission(t *testing.T) {
	store := seededStore(t)
	detail, err := store.ExerciseDetail("2", "1")
	require.NoError(t, err)
	assert.Empty(t, detail.ExpectedAnswer)
	assert.Equal(t, "Basics", detail.ModuleName)
	assert.Equal(t, "Introduction to SQL", detail.CourseName)
	assert.True(t, bool(detail.Completed))
	require.NotNil(t, detail.LastSubmission)
	assert.True(t, detail.LastSubmission.IsCorrect)

	fresh, err := store.ExerciseDetail("3", "1")
	require.NoError(t, err)
	assert.False(t, bool(fresh.Completed))
	assert.Nil(t, fresh.LastSubmission)
}

func TestSubmitGradesNormalizedText(t *testing.T) {
	store := seededStore(t)

	result, err := store.Submit("3", "2", "  select NAME,   age from STUDENTS ;; ")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, float64(100), result.Score)

	result, err = store.Submit("3", "2", "DELETE FROM students")
	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Contains(t, result.AIFeedback, "students(id INT, name VARCHAR(100), age INT)")
	assert.Contains(t, result.AIFeedback, "Hint: List the columns")

	logs, summary := store.ErrorLogs("3")
	require.Len(t, logs, 1)
	assert.Equal(t, "syntax", logs[0].ErrorType)
	assert.Equal(t, map[string]int{"syntax": 1}, summary)

	_, err = store.Submit("3", "2", "   ")
	assert.True(t, appErrors.IsValidation(err))
	_, err = store.Submit("3", "4", "SELECT 1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestProgressAndKnowledgeGraph(t *testing.T) {
	store := seededStore(t)

	progress := store.Progress("2")
	require.Len(t, progress, 2)
	assert.Equal(t, "Introduction to SQL", progress[0].CourseName)
	assert.Equal(t, 1, progress[0].CompletedQuestions)
	assert.Equal(t, 3, progress[0].TotalExercises)
	assert.Equal(t, 33.3, progress[0].CompletionPercentage)
	assert.Equal(t, 50.0, progress[0].AccuracyRate)
	assert.Equal(t, 0, progress[1].TotalExercises)

	graphs := store.KnowledgeGraphs("2")
	require.Len(t, graphs, 1)
	assert.Equal(t, []string{"Filtering"}, graphs[0].WeakAreas)

	_, err := store.Submit("2", "3", "select name from students where age >= 18")
	require.NoError(t, err)
	assert.Empty(t, store.KnowledgeGraphs("2"))

	logs, summary := store.ErrorLogs("2")
	assert.Len(t, logs, 1)
	assert.Equal(t, 1, summary["logic"])
}

func TestEnrollment(t *testing.T) {
	store := seededStore(t)

	err := store.Enroll("2", "1")
	assert.Equal(t, "You are already enrolled in this course.", appErrors.FromError(err).Message)
	err = store.Enroll("3", "3")
	assert.Equal(t, "Course does not exist or has ended.", appErrors.FromError(err).Message)

	require.NoError(t, store.Enroll("3", "2"))
	browse := store.BrowseCourses("3")
	require.Len(t, browse, 2)
	assert.True(t, bool(browse[1].IsEnrolled))
	assert.Equal(t, 1, browse[1].TotalModules)
	assert.Equal(t, 1, browse[1].TotalExercises)

	courses := store.StudentCourses("2")
	require.Len(t, courses, 2)
	assert.Equal(t, "enrolled", courses[0].Status)
	assert.Equal(t, "completed", courses[1].Status)
}

func TestRosterAndGrades(t *testing.T) {
	store := seededStore(t)

	roster := store.Students("1", StudentFilter{})
	require.Len(t, roster, 2)
	assert.Equal(t, "Ana Diaz", roster[0].DisplayName())
	assert.Len(t, roster[0].Courses, 2)

	found := store.Students("1", StudentFilter{Search: "patel"})
	require.Len(t, found, 1)
	assert.Equal(t, models.ID("3"), found[0].UserID)

	one := store.Students("1", StudentFilter{StudentID: "2", CourseID: "3"})
	require.Len(t, one, 1)
	require.Len(t, one[0].Courses, 1)
	require.NotNil(t, one[0].Courses[0].Grade)
	assert.Equal(t, 88.0, *one[0].Courses[0].Grade)

	enrollment, err := store.UpdateGrade("1", models.GradeUpdate{StudentID: "3", CourseID: "1", Grade: 91.5})
	require.NoError(t, err)
	assert.Equal(t, 91.5, *enrollment.Grade)
	_, err = store.UpdateGrade("1", models.GradeUpdate{StudentID: "3", CourseID: "2", Grade: 50})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	assert.NoError(t, store.EnsureTeaches("1", "3"))
	outsider, err := store.CreateUser(models.SignupRequest{Username: "lee", Password: "secret1", Email: "lee@smartsql.dev"}, models.RoleStudent)
	require.NoError(t, err)
	assert.ErrorIs(t, store.EnsureTeaches("1", outsider.UserID), appErrors.ErrForbidden)
}

func TestMessaging(t *testing.T) {
	store := seededStore(t)

	assert.Len(t, store.StudentMessages("3"), 1)
	assert.Len(t, store.InstructorMessages("1", ""), 2)
	assert.Len(t, store.InstructorMessages("1", "having"), 1)

	receiver := models.ID("3")
	msg, err := store.SendMessage("1", models.MessageDraft{Type: models.MessagePrivate, Content: "See me after class", ReceiverID: &receiver})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, "Morgan Lee", msg.SenderName)
	assert.Len(t, store.StudentMessages("3"), 2)
	assert.Len(t, store.StudentMessages("2"), 1)

	_, err = store.SendMessage("1", models.MessageDraft{Type: models.MessagePrivate, Content: "hi"})
	assert.True(t, appErrors.IsValidation(err))

	_, err = store.SendMessage("1", models.MessageDraft{Type: models.MessageAnnouncement, Content: "Exam on Friday"})
	require.NoError(t, err)
	assert.Len(t, store.StudentMessages("2"), 2)

	_, err = store.DirectMessage("2", models.DirectMessage{ReceiverID: "2", Content: "note to self"})
	assert.True(t, appErrors.IsValidation(err))

	recipients := store.Recipients("1")
	assert.Len(t, recipients.Students, 2)
	assert.Nil(t, recipients.Students[0].Courses)
	assert.Len(t, recipients.Courses, 3)
}

func TestDashboards(t *testing.T) {
	store := seededStore(t)

	dash, err := store.StudentDashboard("2")
	require.NoError(t, err)
	assert.Equal(t, 2, dash.CourseStats["total_courses"])
	assert.Equal(t, 1, dash.ExerciseStats["completed_exercises"])
	assert.Len(t, dash.RecentExercises, 2)
	assert.Equal(t, "Adults only", dash.RecentExercises[0]["title"])

	summary := store.InstructorDashboard("1")
	assert.Equal(t, 3, summary["total_courses"])
	assert.Equal(t, 4, summary["total_exercises"])
	assert.Equal(t, 2, summary["total_students"])
	assert.Equal(t, 50.0, summary["accuracy_rate"])
}

func TestProfileUpdate(t *testing.T) {
	store := seededStore(t)
	profile, err := store.UpdateProfile("2", models.ProfileUpdate{Email: "ana@example.com", FirstName: "Ana", LastName: "Diaz", Bio: "Learning SQL"})
	require.NoError(t, err)
	assert.Equal(t, "Learning SQL", profile.Bio)

	_, err = store.UpdateProfile("2", models.ProfileUpdate{Email: "SAM@smartsql.dev"})
	assert.True(t, appErrors.IsValidation(err))
}

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, "select * from students", NormalizeAnswer("  SELECT *\n  FROM students; "))
	assert.Equal(t, "", NormalizeAnswer(" ; "))
}
