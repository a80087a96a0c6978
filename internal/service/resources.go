package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// Resource describes one backend entity collection: where it is listed,
// how it is created, updated and deleted, and any checks beyond struct tags.
type Resource[T any] struct {
	Name          string
	ListPath      string
	CollectionKey string
	CreatePath    string
	UpdatePath    func(id models.ID) (string, url.Values)
	DeletePath    func(id models.ID) (string, url.Values)
	ID            func(T) models.ID
	Validate      func(T) map[string]string
}

// FormBinding converts between an entity and its edit-form shape.
type FormBinding[F, T any] struct {
	Empty      func() F
	FromEntity func(T) F
	ToPayload  func(F) (T, error)
}

// IdentityForm binds an entity that is edited as-is.
func IdentityForm[T any]() FormBinding[T, T] {
	return FormBinding[T, T]{
		Empty:      func() T { var zero T; return zero },
		FromEntity: func(v T) T { return v },
		ToPayload:  func(v T) (T, error) { return v, nil },
	}
}

func queryID(path, key string) func(models.ID) (string, url.Values) {
	return func(id models.ID) (string, url.Values) {
		return path, url.Values{key: {id.String()}}
	}
}

func itemPath(base string) func(models.ID) (string, url.Values) {
	return func(id models.ID) (string, url.Values) {
		return fmt.Sprintf("%s%s/", base, url.PathEscape(id.String())), nil
	}
}

// CourseResource is the instructor's course collection.
func CourseResource() Resource[models.Course] {
	return Resource[models.Course]{
		Name:          "courses",
		ListPath:      "/instructor/courses/",
		CollectionKey: "courses",
		CreatePath:    "/instructor/courses/insert/",
		UpdatePath:    queryID("/instructor/courses/update/", "course_id"),
		DeletePath:    queryID("/instructor/courses/delete/", "course_id"),
		ID:            func(c models.Course) models.ID { return c.CourseID },
	}
}

// StudentCourseResource lists the courses a student is enrolled in.
func StudentCourseResource() Resource[models.Course] {
	return Resource[models.Course]{
		Name:          "student-courses",
		ListPath:      "/student/courses/",
		CollectionKey: "courses",
		ID:            func(c models.Course) models.ID { return c.CourseID },
	}
}

// ModuleResource is the instructor's module collection, filterable by course_id.
func ModuleResource() Resource[models.Module] {
	return Resource[models.Module]{
		Name:          "modules",
		ListPath:      "/instructor/modules/",
		CollectionKey: "modules",
		CreatePath:    "/instructor/modules/",
		UpdatePath:    itemPath("/instructor/modules/"),
		DeletePath:    itemPath("/instructor/modules/"),
		ID:            func(m models.Module) models.ID { return m.ModuleID },
	}
}

// ExerciseResource is the instructor's exercise collection, filterable by
// module_id, course_id, difficulty and search.
func ExerciseResource() Resource[models.Exercise] {
	return Resource[models.Exercise]{
		Name:          "exercises",
		ListPath:      "/instructor/exercises/",
		CollectionKey: "exercises",
		CreatePath:    "/instructor/exercises/",
		UpdatePath:    itemPath("/instructor/exercises/"),
		DeletePath:    itemPath("/instructor/exercises/"),
		ID:            func(e models.Exercise) models.ID { return e.ExerciseID },
	}
}

// ExerciseForm binds exercises to a form whose schema is authored as text.
// Text that does not parse is rejected before any request is made.
func ExerciseForm() FormBinding[models.ExerciseForm, models.Exercise] {
	return FormBinding[models.ExerciseForm, models.Exercise]{
		Empty: func() models.ExerciseForm {
			return models.ExerciseForm{Difficulty: models.DifficultyEasy}
		},
		FromEntity: func(e models.Exercise) models.ExerciseForm {
			return models.ExerciseForm{
				ExerciseID:      e.ExerciseID,
				ModuleID:        e.ModuleID,
				Title:           e.Title,
				Description:     e.Description,
				Hint:            e.Hint,
				ExpectedAnswer:  e.ExpectedAnswer,
				Difficulty:      e.Difficulty,
				TableSchemaText: e.TableSchema.Text(),
			}
		},
		ToPayload: func(f models.ExerciseForm) (models.Exercise, error) {
			schema, err := models.ParseSchemaText(f.TableSchemaText)
			if err != nil {
				return models.Exercise{}, appErrors.Validation("invalid exercise", map[string]string{
					"table_schema": "must be a valid JSON array of tables",
				})
			}
			return models.Exercise{
				ExerciseID:     f.ExerciseID,
				ModuleID:       f.ModuleID,
				Title:          strings.TrimSpace(f.Title),
				Description:    f.Description,
				Hint:           f.Hint,
				ExpectedAnswer: strings.TrimSpace(f.ExpectedAnswer),
				Difficulty:     f.Difficulty,
				TableSchema:    schema,
			}, nil
		},
	}
}

// StudentResource lists students enrolled in the instructor's courses.
func StudentResource() Resource[models.StudentRecord] {
	return Resource[models.StudentRecord]{
		Name:          "students",
		ListPath:      "/instructor/students/",
		CollectionKey: "students",
		ID:            func(s models.StudentRecord) models.ID { return s.UserID },
	}
}

// GradeResource updates an enrollment grade.
func GradeResource() Resource[models.GradeUpdate] {
	return Resource[models.GradeUpdate]{
		Name: "grades",
		UpdatePath: func(models.ID) (string, url.Values) {
			return "/instructor/scores/update/", nil
		},
		ID: func(g models.GradeUpdate) models.ID { return g.StudentID },
	}
}

// InstructorMessageResource lists the instructor's messages.
func InstructorMessageResource() Resource[models.Message] {
	return Resource[models.Message]{
		Name:          "messages",
		ListPath:      "/instructor/messages/",
		CollectionKey: "messages",
		ID:            func(m models.Message) models.ID { return m.MessageID },
	}
}

// StudentMessageResource lists messages addressed to the student.
func StudentMessageResource() Resource[models.Message] {
	return Resource[models.Message]{
		Name:          "student-messages",
		ListPath:      "/student/messages/",
		CollectionKey: "messages",
		ID:            func(m models.Message) models.ID { return m.MessageID },
	}
}

// MessageDraftResource sends private messages and announcements.
func MessageDraftResource() Resource[models.MessageDraft] {
	return Resource[models.MessageDraft]{
		Name:       "message-drafts",
		CreatePath: "/instructor/messages/",
		ID:         func(models.MessageDraft) models.ID { return "" },
		Validate:   validateDraft,
	}
}

// MessageDraftForm trims the content and drops the address field the
// message type does not use.
func MessageDraftForm() FormBinding[models.MessageDraft, models.MessageDraft] {
	return FormBinding[models.MessageDraft, models.MessageDraft]{
		Empty: func() models.MessageDraft {
			return models.MessageDraft{Type: models.MessageAnnouncement}
		},
		FromEntity: func(d models.MessageDraft) models.MessageDraft { return d },
		ToPayload: func(d models.MessageDraft) (models.MessageDraft, error) {
			d.Content = strings.TrimSpace(d.Content)
			if d.Type == models.MessagePrivate {
				d.CourseID = nil
				return d, nil
			}
			d.ReceiverID = nil
			if d.CourseID != nil && d.CourseID.Empty() {
				d.CourseID = nil
			}
			return d, nil
		},
	}
}

func validateDraft(d models.MessageDraft) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(d.Content) == "" {
		fields["content"] = "is required"
	}
	if d.Type == models.MessagePrivate && (d.ReceiverID == nil || d.ReceiverID.Empty()) {
		fields["receiver_id"] = "is required for private messages"
	}
	return fields
}

// restAPI is the full verb set of the gateway client.
type restAPI interface {
	listAPI
	editAPI
}
