package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/service"
)

// PasswordEnv supplies the password when --password is absent.
const PasswordEnv = "SMARTSQL_PASSWORD"

func runLogin(ctx context.Context, a *App, args []string) error {
	fs := newFlags("login", a)
	password := fs.StringP("password", "p", "", "account password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: login <username>", ErrUsage)
	}
	pw := *password
	if pw == "" {
		pw = os.Getenv(PasswordEnv)
	}
	if pw == "" {
		var err error
		if pw, err = a.readLine("Password: "); err != nil {
			return err
		}
	}
	landing, err := a.auth.Login(ctx, models.LoginRequest{Username: fs.Arg(0), Password: pw})
	if err != nil {
		return err
	}
	session := a.auth.Current()
	a.printf("Logged in as %s (%s). Home: %s\n", session.Username, session.Role, landing)
	return nil
}

func runSignup(ctx context.Context, a *App, args []string) error {
	fs := newFlags("signup", a)
	var req models.SignupRequest
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Password, "password", "", "password")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.FirstName, "first-name", "", "first name")
	fs.StringVar(&req.LastName, "last-name", "", "last name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if req.Password == "" {
		req.Password = os.Getenv(PasswordEnv)
	}
	if err := a.auth.Signup(ctx, req); err != nil {
		return err
	}
	a.printf("Account %s created. You can now log in.\n", req.Username)
	return nil
}

func runLogout(ctx context.Context, a *App, _ []string) error {
	if _, err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.printf("Logged out.\n")
	return nil
}

func runWhoami(_ context.Context, a *App, _ []string) error {
	session := a.auth.Current()
	decision := a.shell.Resolve(session, service.LandingRoute(session.Identity()))
	switch id := decision.Identity.(type) {
	case models.Instructor:
		a.printf("%s (instructor, id %s)\n", id.Username, id.UserID)
	case models.Student:
		a.printf("%s (student, id %s)\n", id.Username, id.UserID)
	default:
		a.printf("Not logged in.\n")
		return nil
	}
	rows := make([][]string, 0, len(decision.Menu))
	for _, item := range decision.Menu {
		rows = append(rows, []string{"  " + item.Label, item.Route})
	}
	return a.table(nil, rows)
}

func runProfile(ctx context.Context, a *App, args []string) error {
	fs := newFlags("profile", a)
	user := fs.String("user", "", "user id (defaults to yourself)")
	email := fs.String("email", "", "new email address")
	bio := fs.String("bio", "", "new bio")
	if err := parse(fs, args); err != nil {
		return err
	}
	id := models.ID(*user)
	if id.Empty() {
		id = models.ID(a.auth.Current().UserID)
	}
	profiles := service.NewProfileService(a.client, nil, a.logger)
	p, err := profiles.Get(ctx, id)
	if err != nil {
		return err
	}
	if fs.Changed("email") || fs.Changed("bio") {
		form := models.ProfileUpdate{Email: p.Email, FirstName: p.FirstName, LastName: p.LastName, Bio: p.Bio}
		if fs.Changed("email") {
			form.Email = *email
		}
		if fs.Changed("bio") {
			form.Bio = *bio
		}
		if err := profiles.Update(ctx, form); err != nil {
			return err
		}
		a.printf("Profile updated.\n")
		return nil
	}
	return a.table(nil, [][]string{
		{"Username", p.Username},
		{"Name", fullName(p.FirstName, p.LastName, "-")},
		{"Email", p.Email},
		{"Role", string(p.Role)},
		{"Bio", p.Bio},
	})
}

func runDashboard(ctx context.Context, a *App, _ []string) error {
	svc := service.NewEnrollmentService(a.client, a.logger)
	if a.isInstructor() {
		data, err := svc.InstructorDashboard(ctx)
		if err != nil {
			return err
		}
		return a.table(nil, flatten(data))
	}
	d, err := svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	rows := flatten(d.CourseStats)
	rows = append(rows, flatten(d.ExerciseStats)...)
	if err := a.table(nil, rows); err != nil {
		return err
	}
	if len(d.RecentExercises) > 0 {
		a.printf("\nRecent exercises:\n")
		for _, e := range d.RecentExercises {
			a.printf("  %v\n", e["title"])
		}
	}
	return nil
}

func flatten(m map[string]interface{}) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]interface{}, []interface{}:
			continue
		default:
			rows = append(rows, []string{strings.ReplaceAll(k, "_", " "), fmt.Sprint(v)})
		}
	}
	return rows
}

func (a *App) readLine(prompt string) (string, error) {
	fmt.Fprint(a.errOut, prompt)
	line, err := a.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line == "" {
		return "", fmt.Errorf("%w: no input", ErrUsage)
	}
	return line, nil
}
