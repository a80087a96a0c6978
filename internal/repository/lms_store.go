package repository

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

type userRecord struct {
	models.Profile
	passwordHash []byte
	createdAt    time.Time
}

type courseRecord struct {
	models.Course
	instructorID models.ID
	createdAt    time.Time
}

type enrollmentRecord struct {
	studentID  models.ID
	courseID   models.ID
	status     models.EnrollmentStatus
	grade      *float64
	enrolledAt time.Time
}

type submissionRecord struct {
	studentID  models.ID
	exerciseID models.ID
	result     models.SubmissionResult
	at         time.Time
}

type errorLogRecord struct {
	studentID  models.ID
	exerciseID models.ID
	entry      models.ErrorLog
	at         time.Time
}

// LMSStoreOptions tunes an LMSStore.
type LMSStoreOptions struct {
	PasswordCost int
	Now          func() time.Time
}

// LMSStore is the in-memory data layer of the development backend. Every
// method takes the acting user's id and enforces ownership itself.
type LMSStore struct {
	mu           sync.RWMutex
	passwordCost int
	now          func() time.Time
	seq          map[string]int64

	users       map[models.ID]*userRecord
	usernames   map[string]models.ID
	courses     map[models.ID]*courseRecord
	modules     map[models.ID]*models.Module
	exercises   map[models.ID]*models.Exercise
	enrollments map[string]*enrollmentRecord
	latest      map[string]*submissionRecord
	attempts    []submissionRecord
	errorLogs   []errorLogRecord
	messages    []models.Message
}

// NewLMSStore constructs an empty store.
func NewLMSStore(opts LMSStoreOptions) *LMSStore {
	cost := opts.PasswordCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &LMSStore{
		passwordCost: cost,
		now:          now,
		seq:          make(map[string]int64),
		users:        make(map[models.ID]*userRecord),
		usernames:    make(map[string]models.ID),
		courses:      make(map[models.ID]*courseRecord),
		modules:      make(map[models.ID]*models.Module),
		exercises:    make(map[models.ID]*models.Exercise),
		enrollments:  make(map[string]*enrollmentRecord),
		latest:       make(map[string]*submissionRecord),
	}
}

// Counts reports how many records of each kind the store holds.
func (s *LMSStore) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"users":       len(s.users),
		"courses":     len(s.courses),
		"modules":     len(s.modules),
		"exercises":   len(s.exercises),
		"enrollments": len(s.enrollments),
		"submissions": len(s.attempts),
		"messages":    len(s.messages),
	}
}

func (s *LMSStore) nextIDLocked(kind string) models.ID {
	s.seq[kind]++
	return models.ID(strconv.FormatInt(s.seq[kind], 10))
}

func pairKey(a, b models.ID) string {
	return a.String() + "|" + b.String()
}

// idLess orders numeric ids numerically and everything else lexically.
func idLess(a, b models.ID) bool {
	ai, aerr := strconv.ParseInt(a.String(), 10, 64)
	bi, berr := strconv.ParseInt(b.String(), 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

func sortedIDs[T any](m map[models.ID]T) []models.ID {
	ids := make([]models.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return idLess(ids[i], ids[j]) })
	return ids
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func notFound(what string) error {
	return appErrors.Clone(appErrors.ErrNotFound, what+" not found.")
}

// CreateUser registers an account. Username and email must be unique.
func (s *LMSStore) CreateUser(req models.SignupRequest, role models.Role) (models.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.passwordCost)
	if err != nil {
		return models.Profile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	username := strings.TrimSpace(req.Username)
	fields := map[string]string{}
	if _, exists := s.usernames[strings.ToLower(username)]; exists {
		fields["username"] = "A user with that username already exists."
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(req.Email)) {
			fields["email"] = "A user with that email already exists."
			break
		}
	}
	if len(fields) > 0 {
		return models.Profile{}, appErrors.Validation("Registration failed.", fields)
	}

	rec := &userRecord{
		Profile: models.Profile{
			UserID:    s.nextIDLocked("user"),
			Username:  username,
			Email:     strings.TrimSpace(req.Email),
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Role:      role,
		},
		passwordHash: hash,
		createdAt:    s.now().UTC(),
	}
	s.users[rec.UserID] = rec
	s.usernames[strings.ToLower(username)] = rec.UserID
	return rec.Profile, nil
}

// Authenticate checks a username and password pair.
func (s *LMSStore) Authenticate(username, password string) (models.Profile, error) {
	s.mu.RLock()
	id, ok := s.usernames[strings.ToLower(strings.TrimSpace(username))]
	var rec *userRecord
	if ok {
		rec = s.users[id]
	}
	s.mu.RUnlock()
	if rec == nil {
		return models.Profile{}, appErrors.Clone(appErrors.ErrInvalidCredentials, "User does not exist")
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
		return models.Profile{}, appErrors.Clone(appErrors.ErrInvalidCredentials, "Wrong credentials or wrong user type")
	}
	return rec.Profile, nil
}

// Profile returns a user's public profile.
func (s *LMSStore) Profile(userID models.ID) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	if !ok {
		return models.Profile{}, notFound("User")
	}
	return rec.Profile, nil
}

// UpdateProfile replaces the editable profile fields.
func (s *LMSStore) UpdateProfile(userID models.ID, update models.ProfileUpdate) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return models.Profile{}, notFound("User")
	}
	for id, u := range s.users {
		if id != userID && strings.EqualFold(u.Email, update.Email) {
			return models.Profile{}, appErrors.Validation("Profile update failed.", map[string]string{"email": "A user with that email already exists."})
		}
	}
	rec.Email = update.Email
	rec.FirstName = update.FirstName
	rec.LastName = update.LastName
	rec.Bio = update.Bio
	return rec.Profile, nil
}

func (s *LMSStore) roleOfLocked(userID models.ID) models.Role {
	if rec, ok := s.users[userID]; ok {
		return rec.Role
	}
	return ""
}

func (s *LMSStore) displayNameLocked(userID models.ID) string {
	rec, ok := s.users[userID]
	if !ok {
		return ""
	}
	return models.StudentRecord{Username: rec.Username, FirstName: rec.FirstName, LastName: rec.LastName}.DisplayName()
}
