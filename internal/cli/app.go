// Package cli is the terminal front-end of the SmartSQL client. Every command
// passes the role shell before it touches the network.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/internal/service"
	"github.com/noah-isme/smartsql-client/pkg/cache"
	"github.com/noah-isme/smartsql-client/pkg/config"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
	"github.com/noah-isme/smartsql-client/pkg/storage"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage error")

type command struct {
	name    string
	summary string
	// route is the shell route guarding the command per role. An empty
	// route means the command is unavailable for that role.
	instructorRoute string
	studentRoute    string
	public          bool
	run             func(ctx context.Context, a *App, args []string) error
}

// App wires configuration, the session and the API client for one run.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	out     io.Writer
	errOut  io.Writer
	in      *bufio.Reader
	client  *gateway.Client
	auth    *service.AuthService
	shell   *service.Shell
	metrics *service.MetricsService
	closers []func()
}

// Options carries the process streams.
type Options struct {
	Out    io.Writer
	ErrOut io.Writer
	In     io.Reader
	Logger *zap.Logger
}

// New builds an App and restores the persisted session.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	errOut := opts.ErrOut
	if errOut == nil {
		errOut = io.Discard
	}
	in := opts.In
	if in == nil {
		in = strings.NewReader("")
	}
	a := &App{
		cfg:     cfg,
		logger:  logger,
		out:     opts.Out,
		errOut:  errOut,
		in:      bufio.NewReader(in),
		shell:   service.NewShell(),
		metrics: service.NewMetricsService(service.MetricsNamespaceClient),
	}

	repo, err := a.sessionRepository(ctx)
	if err != nil {
		return nil, err
	}
	a.client, err = gateway.New(gateway.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Tokens:  gateway.TokenFunc(func() string { return a.auth.Token() }),
		Metrics: a.metrics,
		Logger:  logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.auth = service.NewAuthService(repo, a.client, nil, logger)
	if _, err := a.auth.Restore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) sessionRepository(ctx context.Context) (service.SessionRepository, error) {
	if a.cfg.Session.Store == config.SessionStoreRedis {
		client, err := cache.NewRedis(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return repository.NewSessionRedisRepository(client, cache.SessionKey(a.cfg.Session.KeyPrefix, a.cfg.API.BaseURL), a.logger), nil
	}
	local, err := storage.NewLocalStorage(a.cfg.Session.Dir)
	if err != nil {
		return nil, fmt.Errorf("session directory: %w", err)
	}
	return repository.NewSessionFileRepository(local, a.logger), nil
}

// Close releases external connections.
func (a *App) Close() {
	for _, fn := range a.closers {
		fn()
	}
	a.closers = nil
}

// Metrics exposes request and workflow counters of this run.
func (a *App) Metrics() *service.MetricsService { return a.metrics }

func commands() []command {
	return []command{
		{name: "login", summary: "log in: login <username> [--password p]", public: true, run: runLogin},
		{name: "signup", summary: "create a student account", public: true, run: runSignup},
		{name: "logout", summary: "forget the stored session", public: true, run: runLogout},
		{name: "whoami", summary: "show the session and menu", public: true, run: runWhoami},
		{name: "dashboard", summary: "landing summary", instructorRoute: service.RouteInstructorHome, studentRoute: service.RouteStudentHome, run: runDashboard},
		{name: "profile", summary: "show a profile: profile [--user id]", instructorRoute: "/teacher/profile", studentRoute: "/student/profile", run: runProfile},
		{name: "courses", summary: "list courses", instructorRoute: "/teacher/courses", studentRoute: "/student/courses", run: runCourses},
		{name: "modules", summary: "list modules of a course", instructorRoute: "/teacher/modules", studentRoute: "/student/courses", run: runModules},
		{name: "exercises", summary: "list exercises", instructorRoute: "/teacher/sql-exercises", studentRoute: "/student/sql", run: runExercises},
		{name: "nav", summary: "resolve --course/--module/--exercise into breadcrumbs", instructorRoute: "/teacher/courses", studentRoute: "/student/courses", run: runNav},
		{name: "attempt", summary: "open an exercise: attempt <id> [--answer sql] [--hint]", studentRoute: "/student/sql", run: runAttempt},
		{name: "browse", summary: "browse active courses", studentRoute: "/student/browse", run: runBrowse},
		{name: "enroll", summary: "enroll in a course: enroll <course-id>", studentRoute: "/student/browse", run: runEnroll},
		{name: "chat", summary: "ask the SQL assistant: chat [question]", instructorRoute: "/teacher/ai-assistant", studentRoute: service.RouteStudentHome, run: runChat},
		{name: "messages", summary: "list messages [--search text]", instructorRoute: "/teacher/messages", studentRoute: "/student/messages", run: runMessages},
		{name: "send", summary: "send a message: send [--to id | --course id] [--type t] <text>", instructorRoute: "/teacher/messages", studentRoute: "/student/messages", run: runSend},
		{name: "students", summary: "list students [--course id] [--search text]", instructorRoute: "/teacher/students", run: runStudents},
		{name: "grade", summary: "set a grade: grade --student id --course id --grade n", instructorRoute: "/teacher/students", run: runGrade},
		{name: "export", summary: "export the roster: export [--format csv|pdf]", instructorRoute: "/teacher/students", run: runExport},
	}
}

// Run executes one command line.
func (a *App) Run(ctx context.Context, args []string) error {
	global := pflag.NewFlagSet("smartsql", pflag.ContinueOnError)
	global.SetOutput(a.errOut)
	global.SetInterspersed(false)
	stats := global.Bool("stats", false, "print request counters after the command")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	rest := global.Args()
	if len(rest) == 0 || rest[0] == "help" {
		a.usage()
		return nil
	}

	cmd, ok := lookup(rest[0])
	if !ok {
		a.usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, rest[0])
	}
	err := a.dispatch(ctx, cmd, rest[1:])
	if *stats {
		snap := a.metrics.Snapshot()
		fmt.Fprintf(a.errOut, "requests=%d failed=%d avg_ms=%.1f\n", snap.RequestsTotal, snap.FailedRequests, snap.AverageRequestDurationMs)
	}
	return err
}

func lookup(name string) (command, bool) {
	for _, c := range commands() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (a *App) dispatch(ctx context.Context, cmd command, args []string) error {
	if cmd.public {
		return cmd.run(ctx, a, args)
	}
	route := a.routeFor(cmd)
	_, err := a.shell.Guard(a.auth.Current(), route, func() error {
		return cmd.run(ctx, a, args)
	})
	return err
}

// routeFor picks the command's route for the current role. A role without a
// route gets the other role's route, which the shell then refuses.
func (a *App) routeFor(cmd command) string {
	switch a.auth.Current().Identity().(type) {
	case models.Instructor:
		if cmd.instructorRoute != "" {
			return cmd.instructorRoute
		}
		return cmd.studentRoute
	case models.Student:
		if cmd.studentRoute != "" {
			return cmd.studentRoute
		}
		return cmd.instructorRoute
	default:
		if cmd.studentRoute != "" {
			return cmd.studentRoute
		}
		return cmd.instructorRoute
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "usage: smartsql [--stats] <command> [flags] [args]")
	fmt.Fprintln(a.out)
	cmds := commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })
	rows := make([][]string, 0, len(cmds))
	for _, c := range cmds {
		rows = append(rows, []string{"  " + c.name, c.summary})
	}
	_ = a.table(nil, rows)
}

// scope maps the session onto the API side the command reads.
func (a *App) scope() service.Scope {
	scope, _ := service.ScopeFor(a.auth.Current().Identity())
	return scope
}

func (a *App) isInstructor() bool {
	_, ok := a.auth.Current().Identity().(models.Instructor)
	return ok
}

func newFlags(name string, a *App) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// UserMessage renders err for the terminal.
func UserMessage(err error) string {
	if errors.Is(err, ErrUsage) {
		return err.Error()
	}
	return appErrors.UserMessage(err)
}
