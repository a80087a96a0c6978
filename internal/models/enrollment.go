package models

// EnrollmentStatus tracks a student's standing in a course.
type EnrollmentStatus string

const (
	EnrollmentEnrolled   EnrollmentStatus = "enrolled"
	EnrollmentCompleted  EnrollmentStatus = "completed"
	EnrollmentDropped    EnrollmentStatus = "dropped"
	EnrollmentWaitlisted EnrollmentStatus = "waitlisted"
)

// Enrollment joins a student to a course.
type Enrollment struct {
	StudentID  ID               `json:"student_id,omitempty"`
	CourseID   ID               `json:"course_id"`
	CourseName string           `json:"course_name,omitempty"`
	Status     EnrollmentStatus `json:"status"`
	Grade      *float64         `json:"grade"`
}

// GradeUpdate is the instructor's grade edit for one enrollment.
type GradeUpdate struct {
	StudentID ID      `json:"student_id" validate:"required"`
	CourseID  ID      `json:"course_id" validate:"required"`
	Grade     float64 `json:"grade" validate:"min=0,max=100"`
}

// StudentRecord is a student as listed for an instructor.
type StudentRecord struct {
	UserID    ID           `json:"user_id"`
	Username  string       `json:"username"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	Courses   []Enrollment `json:"courses"`
}

// DisplayName falls back to the username when no name is set.
func (s StudentRecord) DisplayName() string {
	name := s.FirstName
	if s.LastName != "" {
		if name != "" {
			name += " "
		}
		name += s.LastName
	}
	if name == "" {
		return s.Username
	}
	return name
}

// StudentDashboard is the student landing summary.
type StudentDashboard struct {
	User            map[string]interface{}   `json:"user"`
	CourseStats     map[string]interface{}   `json:"course_stats"`
	ExerciseStats   map[string]interface{}   `json:"exercise_stats"`
	RecentCourses   []map[string]interface{} `json:"recent_courses"`
	RecentExercises []map[string]interface{} `json:"recent_exercises"`
}
