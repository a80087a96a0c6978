package models

// Term is the academic term of a course.
type Term string

const (
	TermSpring Term = "Spring"
	TermSummer Term = "Summer"
	TermFall   Term = "Fall"
)

// CourseState is the lifecycle state of a course.
type CourseState string

const (
	CourseActive    CourseState = "active"
	CourseCompleted CourseState = "completed"
	CourseArchived  CourseState = "archived"
)

// Course is owned by the instructor that created it.
type Course struct {
	CourseID      ID          `json:"course_id,omitempty"`
	CourseName    string      `json:"course_name" validate:"required,max=100"`
	CourseCode    string      `json:"course_code" validate:"required,max=20"`
	Year          int         `json:"year" validate:"required,min=2000,max=2100"`
	Term          Term        `json:"term" validate:"required,oneof=Spring Summer Fall"`
	State         CourseState `json:"state" validate:"required,oneof=active completed archived"`
	Description   string      `json:"course_description,omitempty" validate:"max=2000"`
	EnrolledCount int         `json:"enrolled_students,omitempty"`
	Status        string      `json:"status,omitempty"`
}

// BrowseCourse is a catalogue entry as seen by a student.
type BrowseCourse struct {
	Course
	IsEnrolled     Flag `json:"is_enrolled"`
	TotalModules   int  `json:"total_modules"`
	TotalExercises int  `json:"total_exercises"`
}

// Module is a child of a course.
type Module struct {
	ModuleID      ID     `json:"module_id,omitempty"`
	ModuleName    string `json:"module_name" validate:"required,max=100"`
	Description   string `json:"description,omitempty" validate:"max=2000"`
	CourseID      ID     `json:"course_id" validate:"required"`
	ExerciseCount int    `json:"exercise_count,omitempty"`
}
