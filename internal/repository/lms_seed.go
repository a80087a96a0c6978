package repository

import (
	"time"

	"github.com/noah-isme/smartsql-client/internal/models"
)

// Demo accounts created by SeedDemoData.
const (
	DemoInstructor = "instructor"
	DemoStudent    = "student"
	DemoPassword   = "smartsql123"
)

var (
	studentsTable = models.TableDescriptor{TableName: "students", Columns: []models.Column{
		{Name: "id", Type: "INT"}, {Name: "name", Type: "VARCHAR(100)"}, {Name: "age", Type: "INT"},
	}}
	coursesTable = models.TableDescriptor{TableName: "courses", Columns: []models.Column{
		{Name: "id", Type: "INT"}, {Name: "course_name", Type: "VARCHAR(100)"},
	}}
	enrollmentsTable = models.TableDescriptor{TableName: "enrollments", Columns: []models.Column{
		{Name: "student_id", Type: "INT"}, {Name: "course_id", Type: "INT"},
	}}
)

// SeedDemoData loads an instructor, two students and a small SQL
// curriculum. Seeded ids start at 1 for every entity kind.
func (s *LMSStore) SeedDemoData() error {
	instructor, err := s.CreateUser(models.SignupRequest{
		Username: DemoInstructor, Password: DemoPassword, Email: "instructor@smartsql.dev",
		FirstName: "Morgan", LastName: "Lee",
	}, models.RoleInstructor)
	if err != nil {
		return err
	}
	student, err := s.CreateUser(models.SignupRequest{
		Username: DemoStudent, Password: DemoPassword, Email: "student@smartsql.dev",
		FirstName: "Ana", LastName: "Diaz",
	}, models.RoleStudent)
	if err != nil {
		return err
	}
	classmate, err := s.CreateUser(models.SignupRequest{
		Username: "sam", Password: DemoPassword, Email: "sam@smartsql.dev",
		FirstName: "Sam", LastName: "Patel",
	}, models.RoleStudent)
	if err != nil {
		return err
	}

	intro, err := s.CreateCourse(instructor.UserID, models.Course{
		CourseName: "Introduction to SQL", CourseCode: "SQL101", Year: 2025, Term: models.TermFall,
		State: models.CourseActive, Description: "Querying a single table: projection, filtering and ordering.",
	})
	if err != nil {
		return err
	}
	advanced, err := s.CreateCourse(instructor.UserID, models.Course{
		CourseName: "Advanced Queries", CourseCode: "SQL201", Year: 2025, Term: models.TermFall,
		State: models.CourseActive, Description: "Joins, grouping and subqueries.",
	})
	if err != nil {
		return err
	}
	design, err := s.CreateCourse(instructor.UserID, models.Course{
		CourseName: "Database Design", CourseCode: "DB301", Year: 2024, Term: models.TermSpring,
		State: models.CourseCompleted, Description: "Normalization and schema design.",
	})
	if err != nil {
		return err
	}

	basics, err := s.CreateModule(instructor.UserID, models.Module{ModuleName: "Basics", Description: "SELECT and FROM.", CourseID: intro.CourseID})
	if err != nil {
		return err
	}
	filtering, err := s.CreateModule(instructor.UserID, models.Module{ModuleName: "Filtering", Description: "WHERE clauses.", CourseID: intro.CourseID})
	if err != nil {
		return err
	}
	joins, err := s.CreateModule(instructor.UserID, models.Module{ModuleName: "Joins", Description: "Combining tables.", CourseID: advanced.CourseID})
	if err != nil {
		return err
	}

	exercises := []models.Exercise{
		{
			ModuleID: basics.ModuleID, Title: "Select everything", Difficulty: models.DifficultyEasy,
			Description:    "Return every column of every row in the students table.",
			Hint:           "The * wildcard selects all columns.",
			ExpectedAnswer: "SELECT * FROM students;",
			TableSchema:    models.TableSchema{studentsTable},
		},
		{
			ModuleID: basics.ModuleID, Title: "Pick columns", Difficulty: models.DifficultyEasy,
			Description:    "Return the name and age of every student.",
			Hint:           "List the columns after SELECT, separated by commas.",
			ExpectedAnswer: "SELECT name, age FROM students;",
			TableSchema:    models.TableSchema{studentsTable},
		},
		{
			ModuleID: filtering.ModuleID, Title: "Adults only", Difficulty: models.DifficultyMedium,
			Description:    "Return the names of students aged 18 or older.",
			Hint:           "Filter rows with WHERE.",
			ExpectedAnswer: "SELECT name FROM students WHERE age >= 18;",
			TableSchema:    models.TableSchema{studentsTable},
		},
		{
			ModuleID: joins.ModuleID, Title: "Students and their courses", Difficulty: models.DifficultyHard,
			Description:    "List each student's name next to the name of every course they take.",
			Hint:           "Join through the enrollments table.",
			ExpectedAnswer: "SELECT s.name, c.course_name FROM students s JOIN enrollments e ON e.student_id = s.id JOIN courses c ON c.id = e.course_id;",
			TableSchema:    models.TableSchema{studentsTable, enrollmentsTable, coursesTable},
		},
	}
	created := make([]models.Exercise, 0, len(exercises))
	for _, ex := range exercises {
		out, err := s.CreateExercise(instructor.UserID, ex)
		if err != nil {
			return err
		}
		created = append(created, out)
	}

	if err := s.Enroll(student.UserID, intro.CourseID); err != nil {
		return err
	}
	if err := s.Enroll(classmate.UserID, intro.CourseID); err != nil {
		return err
	}
	s.mu.Lock()
	grade := 88.0
	s.enrollments[pairKey(student.UserID, design.CourseID)] = &enrollmentRecord{
		studentID:  student.UserID,
		courseID:   design.CourseID,
		status:     models.EnrollmentCompleted,
		grade:      &grade,
		enrolledAt: s.now().UTC().Add(-180 * 24 * time.Hour),
	}
	s.mu.Unlock()

	if _, err := s.Submit(student.UserID, created[0].ExerciseID, "select * from students"); err != nil {
		return err
	}
	if _, err := s.Submit(student.UserID, created[2].ExerciseID, "SELECT name FROM students"); err != nil {
		return err
	}

	courseID := intro.CourseID
	if _, err := s.SendMessage(instructor.UserID, models.MessageDraft{
		Type: models.MessageAnnouncement, CourseID: &courseID,
		Content: "Welcome to Introduction to SQL! Start with the Basics module.",
	}); err != nil {
		return err
	}
	_, err = s.DirectMessage(student.UserID, models.DirectMessage{
		ReceiverID: instructor.UserID,
		Content:    "Could you explain when to use WHERE instead of HAVING?",
	})
	return err
}
