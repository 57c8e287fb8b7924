package testutil

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/junioryono/locator"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrConstructor = errors.New("constructor error")
	ErrDisposal    = errors.New("disposal error")
)

// TestService is a basic test service
type TestService struct {
	ID        string
	CreatedAt time.Time
}

// NewTestService creates a new test service
func NewTestService() *TestService {
	return &TestService{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	GetLogs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	logs []string
	mu   sync.Mutex
}

func NewTestLogger() *TestLoggerImpl {
	return &TestLoggerImpl{}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) GetLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.logs...)
}

// TestDatabase depends on a TestLogger
type TestDatabase struct {
	Logger TestLogger
	Name   string
}

func NewTestDatabase(logger TestLogger) *TestDatabase {
	logger.Log("database created")
	return &TestDatabase{Logger: logger, Name: "primary"}
}

// TestRepository depends on the database and the service
type TestRepository struct {
	DB      *TestDatabase
	Service *TestService
}

func NewTestRepository(db *TestDatabase, svc *TestService) *TestRepository {
	return &TestRepository{DB: db, Service: svc}
}

// TestPlugin is implemented by three fixture types
type TestPlugin interface {
	PluginName() string
}

type TestPluginA struct{}
type TestPluginB struct{}
type TestPluginC struct{}

func (*TestPluginA) PluginName() string { return "a" }
func (*TestPluginB) PluginName() string { return "b" }
func (*TestPluginC) PluginName() string { return "c" }

// TestPluginHost receives every TestPlugin
type TestPluginHost struct {
	Plugins []TestPlugin
}

func NewTestPluginHost(plugins []TestPlugin) *TestPluginHost {
	return &TestPluginHost{Plugins: plugins}
}

// CloseRecorder records the order in which disposables are closed
type CloseRecorder struct {
	mu     sync.Mutex
	closed []string
}

func (r *CloseRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, name)
}

// Closed returns the names in closing order
func (r *CloseRecorder) Closed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

// TestDisposable records its Close on a CloseRecorder
type TestDisposable struct {
	Name     string
	Recorder *CloseRecorder
	Err      error
}

func (d *TestDisposable) Close() error {
	d.Recorder.record(d.Name)
	return d.Err
}

// FixtureModule declares the logger, database, service, repository and
// plugin fixtures.
func FixtureModule(name string) locator.Module {
	return locator.NewModule(name,
		locator.Provide(NewTestLogger),
		locator.Provide(NewTestDatabase),
		locator.Provide(NewTestService),
		locator.Provide(NewTestRepository),
		locator.Declare[*TestPluginA](),
		locator.Declare[*TestPluginB](),
		locator.Declare[*TestPluginC](),
		locator.Provide(NewTestPluginHost),
	)
}
