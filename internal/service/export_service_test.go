package service

import (
	"context"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/pkg/export"
	"github.com/noah-isme/smartsql-client/pkg/storage"
)

const rosterBody = `{"students":[
	{"user_id":3,"username":"ana","first_name":"Ana","last_name":"Diaz","email":"ana@example.com",
	 "courses":[{"course_id":1,"course_name":"Intro to SQL","status":"enrolled","grade":91.5},{"course_id":2,"course_name":"Joins","status":"completed","grade":null}]},
	{"user_id":4,"username":"li","email":"li@example.com","courses":[]}
]}`

func TestRosterDatasetFlattensEnrollments(t *testing.T) {
	grade := 91.5
	data := RosterDataset([]models.StudentRecord{
		{Username: "ana", FirstName: "Ana", LastName: "Diaz", Email: "ana@example.com", Courses: []models.Enrollment{
			{CourseName: "Intro to SQL", Status: models.EnrollmentEnrolled, Grade: &grade},
			{CourseName: "Joins", Status: models.EnrollmentCompleted},
		}},
		{Username: "li", Email: "li@example.com"},
	})
	require.Len(t, data.Rows, 3)
	assert.Equal(t, []string{"Ana Diaz", "ana", "ana@example.com", "Intro to SQL", "enrolled", "91.5"}, data.Rows[0])
	assert.Equal(t, []string{"Ana Diaz", "ana", "ana@example.com", "Joins", "completed", ""}, data.Rows[1])
	assert.Equal(t, []string{"li", "li", "li@example.com", "", "", ""}, data.Rows[2])
}

func TestExportStudentsWritesCSV(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	api := &routeAPI{routes: map[string]string{"/instructor/students/": rosterBody}}
	svc := NewExportService(api, store, nil, nil, nil)

	result, err := svc.Students(context.Background(), export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rows)
	assert.Regexp(t, regexp.MustCompile(`^students_\d{8}_\d{6}_[0-9a-f]{8}\.csv$`), result.RelativePath)

	content, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Name,Username,Email,Course,Status,Grade\n")
	assert.Contains(t, string(content), "Ana Diaz,ana,ana@example.com,Intro to SQL,enrolled,91.5\n")
}

func TestExportStudentsWritesPDF(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	api := &routeAPI{routes: map[string]string{"/instructor/students/": rosterBody}}
	svc := NewExportService(api, store, nil, nil, nil)

	result, err := svc.Students(context.Background(), export.FormatPDF)
	require.NoError(t, err)
	content, err := store.Read(result.RelativePath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(content[:5]))
}

func TestExportStudentsPropagatesFetchError(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(&routeAPI{}, store, nil, nil, nil)
	_, err = svc.Students(context.Background(), export.FormatCSV)
	assert.Error(t, err)
}
