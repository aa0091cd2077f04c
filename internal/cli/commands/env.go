package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/healthpal-ng/healthpal/internal/cli/auth"
	"github.com/healthpal-ng/healthpal/internal/cli/client"
	"github.com/healthpal-ng/healthpal/internal/cli/config"
	"github.com/healthpal-ng/healthpal/internal/cli/prompt"
	"github.com/healthpal-ng/healthpal/internal/cli/userconfig"
	"github.com/healthpal-ng/healthpal/internal/clinics"
	"github.com/healthpal-ng/healthpal/internal/database"
	"github.com/healthpal-ng/healthpal/internal/demo"
	"github.com/healthpal-ng/healthpal/internal/history"
	"github.com/healthpal-ng/healthpal/internal/logger"
	"github.com/healthpal-ng/healthpal/internal/session"
	"github.com/healthpal-ng/healthpal/internal/triage"
)

const historyFileName = "history.sqlite"

// Env holds the services shared by every command
type Env struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
	Err    io.Writer
	In     io.Reader
	Prompt prompt.Prompter

	Tokens  session.TokenStore
	Session *session.Manager
	AuthAPI *client.AuthAPI
	API     *client.Client
	Demo    *demo.Service
	Triage  *triage.Service
	Clinics *clinics.Service

	configPath  string
	logLevel    string
	loggerSet   bool
	stateStore  *userconfig.Store
	stages      []triage.Stage
	stagesSet   bool
	historyDSN  string
	historyDB   *gorm.DB
	historyOnce sync.Once
	history     *history.Store
	historyErr  error
}

// EnvOption configures an Env
type EnvOption func(*Env)

// WithConfigPath loads the config file from path instead of the default location
func WithConfigPath(path string) EnvOption {
	return func(e *Env) {
		e.configPath = path
	}
}

// WithConfig uses cfg as is
func WithConfig(cfg *config.Config) EnvOption {
	return func(e *Env) {
		e.Config = cfg
	}
}

// WithLogLevel overrides the configured log level
func WithLogLevel(level string) EnvOption {
	return func(e *Env) {
		e.logLevel = level
	}
}

// WithLogger uses l instead of initializing the global logger
func WithLogger(l zerolog.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = l
		e.loggerSet = true
	}
}

// WithTokenStore replaces the OS keyring
func WithTokenStore(s session.TokenStore) EnvOption {
	return func(e *Env) {
		e.Tokens = s
	}
}

// WithStateStore replaces the default demo state file
func WithStateStore(s *userconfig.Store) EnvOption {
	return func(e *Env) {
		e.stateStore = s
	}
}

// WithHistoryDSN sets where assessment history is kept
func WithHistoryDSN(dsn string) EnvOption {
	return func(e *Env) {
		e.historyDSN = dsn
	}
}

// WithPrompter replaces the terminal prompts
func WithPrompter(p prompt.Prompter) EnvOption {
	return func(e *Env) {
		e.Prompt = p
	}
}

// WithIO replaces stdin, stdout and stderr
func WithIO(in io.Reader, out, errOut io.Writer) EnvOption {
	return func(e *Env) {
		e.In = in
		e.Out = out
		e.Err = errOut
	}
}

// WithTriageStages replaces the analysis progress stages
func WithTriageStages(stages []triage.Stage) EnvOption {
	return func(e *Env) {
		e.stages = stages
		e.stagesSet = true
	}
}

// NewEnv loads the configuration and wires the services
func NewEnv(opts ...EnvOption) (*Env, error) {
	e := &Env{
		Out:    os.Stdout,
		Err:    os.Stderr,
		In:     os.Stdin,
		Prompt: prompt.Terminal{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.Config == nil {
		var err error
		if e.configPath != "" {
			e.Config, err = config.Load(e.configPath)
		} else {
			e.Config, err = config.LoadDefault()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if !e.loggerSet {
		level := e.Config.LogLevel
		if e.logLevel != "" {
			level = e.logLevel
		}
		logger.InitWithWriter(level, e.Config.LogFormat, e.Err)
		e.Logger = logger.Component("cli")
	}

	if e.Tokens == nil {
		e.Tokens = auth.NewKeyringStore(e.Config.Host())
	}

	if e.stateStore == nil {
		store, err := userconfig.NewDefaultStore()
		if err != nil {
			return nil, err
		}
		e.stateStore = store
	}

	if e.historyDSN == "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return nil, err
		}
		e.historyDSN = filepath.Join(dir, historyFileName)
	}

	e.AuthAPI = client.NewAuthAPI(e.Config.APIBaseURL, client.WithLogger(e.Logger))

	manager, err := session.New(e.Tokens, e.AuthAPI,
		session.WithNavigator(newLoginNavigator(e.Err)),
		session.WithLogger(e.Logger),
	)
	if err != nil {
		return nil, err
	}
	e.Session = manager

	e.API = client.New(e.Config.APIBaseURL, manager, client.WithLogger(e.Logger))
	e.Demo = demo.NewService(e.stateStore, e.Config.EnableDemoMode)

	triageOpts := []triage.Option{triage.WithModeSource(e.Demo), triage.WithLogger(e.Logger)}
	if e.stagesSet {
		triageOpts = append(triageOpts, triage.WithStages(e.stages))
	}
	e.Triage = triage.NewService(e.API, triageOpts...)
	e.Clinics = clinics.NewService(e.API, e.Demo, e.Logger)

	return e, nil
}

// History opens the assessment history on first use
func (e *Env) History() (*history.Store, error) {
	e.historyOnce.Do(func() {
		db, err := database.Open(e.historyDSN, e.Logger)
		if err != nil {
			e.historyErr = fmt.Errorf("failed to open history: %w", err)
			return
		}
		store, err := history.NewStore(db)
		if err != nil {
			_ = database.Close(db)
			e.historyErr = err
			return
		}
		e.historyDB = db
		e.history = store
	})
	return e.history, e.historyErr
}

// Close releases the history database
func (e *Env) Close() error {
	if e.historyDB == nil {
		return nil
	}
	return database.Close(e.historyDB)
}

// requireUser makes sure a usable session exists for route and returns the
// signed-in user. An expired access token is refreshed first.
func (e *Env) requireUser(ctx context.Context, route session.Route) (*session.User, error) {
	if e.Session.IsAuthenticated() && e.Session.IsTokenExpired() {
		if _, err := e.Session.Refresh(ctx); err != nil {
			e.Logger.Debug().Err(err).Msg("Session refresh failed")
			return nil, session.ErrNotAuthenticated
		}
	}

	if err := e.Session.RequireAuth(route); err != nil {
		return nil, err
	}

	user, ok := e.Session.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}
	return user, nil
}

// loginNavigator tells the user to sign in again. It speaks at most once per run.
type loginNavigator struct {
	w    io.Writer
	once sync.Once
}

func newLoginNavigator(w io.Writer) *loginNavigator {
	return &loginNavigator{w: w}
}

func (n *loginNavigator) Navigate(route session.Route) {
	if route != session.RouteLogin {
		return
	}
	n.once.Do(func() {
		fmt.Fprintln(n.w, "You are signed out. Run 'healthpal login' to continue.")
	})
}

// Loader builds the Env on first use, after flags are parsed
type Loader struct {
	mu   sync.Mutex
	opts []EnvOption
	env  *Env
}

// NewLoader creates a loader with base options
func NewLoader(opts ...EnvOption) *Loader {
	return &Loader{opts: opts}
}

// Add appends options. It has no effect once the Env was built.
func (l *Loader) Add(opts ...EnvOption) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts = append(l.opts, opts...)
}

// Env returns the shared Env, building it on the first call
func (l *Loader) Env() (*Env, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.env != nil {
		return l.env, nil
	}
	env, err := NewEnv(l.opts...)
	if err != nil {
		return nil, err
	}
	l.env = env
	return env, nil
}

// Close releases the Env if it was built
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.env == nil {
		return nil
	}
	return l.env.Close()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}
