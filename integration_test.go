package locator_test

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/junioryono/locator"
	"github.com/junioryono/locator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegration_WebApplicationSimulation simulates concurrent requests
// sharing singletons and receiving their own handlers.
func TestIntegration_WebApplicationSimulation(t *testing.T) {
	l := testutil.NewLocatorBuilder(t).
		WithModules(testutil.FixtureModule(testutil.UniqueName(t, "fixtures"))).
		WithTypes(
			locator.Provide(NewRequestHandler),
			locator.Provide(NewAuthMiddleware),
		).
		Build()

	require.NoError(t, l.Validate())

	// Publish the shared singletons before the requests start
	repo := testutil.AssertResolvable[*testutil.TestRepository](t, l)
	auth := testutil.AssertResolvable[*AuthMiddleware](t, l)

	const requests = 50
	handlers := make([]*RequestHandler, requests)

	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			h, err := locator.Resolve[*RequestHandler](l)
			if !assert.NoError(t, err) {
				return
			}
			h.Serve(fmt.Sprintf("request-%d", i))
			handlers[i] = h
		}(i)
	}
	wg.Wait()

	for i, h := range handlers {
		require.NotNil(t, h, "handler %d", i)
		testutil.AssertSameInstance(t, repo, h.Repo)
		testutil.AssertSameInstance(t, auth, h.Auth)
		if i > 0 {
			testutil.AssertDifferentInstances(t, handlers[0], h)
		}
	}

	logger := testutil.AssertResolvable[testutil.TestLogger](t, l)
	// One line from the database, one per request
	assert.Len(t, logger.GetLogs(), requests+1)
}

// TestIntegration_PluginSystem loads plugins contributed by several modules.
func TestIntegration_PluginSystem(t *testing.T) {
	auth := locator.NewModule("plugins/auth", locator.Provide(NewAuthPlugin))
	audit := locator.NewModule("plugins/audit", locator.Provide(NewAuditPlugin))
	core := locator.NewModule("core",
		locator.Requires("plugins/auth", "plugins/audit"),
		locator.Provide(NewPluginManager),
	)

	loader := &countingLoader{modules: map[string]locator.Module{
		auth.Name():  auth,
		audit.Name(): audit,
	}}

	l := testutil.NewLocatorBuilder(t).
		WithModules(core).
		WithOptions(locator.WithLoader(loader)).
		Build()

	manager := testutil.AssertResolvable[*PluginManager](t, l)
	assert.Equal(t, []string{"auth: data", "audit: data"}, manager.ExecuteAll("data"))

	plugins, err := locator.ResolveAll[Plugin](l)
	require.NoError(t, err)
	require.Len(t, plugins, 2)
	testutil.AssertSameInstance(t, manager.Plugins[0], plugins[0])

	assert.Equal(t, []string{"plugins/auth", "plugins/audit"}, loader.Loads())
}

// TestIntegration_ComplexDependencyGraph resolves a diamond with an abstract
// base and an injection point closing a cycle.
func TestIntegration_ComplexDependencyGraph(t *testing.T) {
	l := testutil.NewLocatorBuilder(t).
		WithTypes(
			locator.Provide(NewEventBus),
			locator.Declare[*EventHandlerBase](),
			locator.Provide(NewOrderEventHandler),
			locator.Provide(NewOrderService),
			locator.Provide(NewBillingService),
			locator.Provide(NewCheckout),
		).
		Build()

	require.NoError(t, l.Validate())

	checkout := testutil.AssertResolvable[*Checkout](t, l)

	// Diamond: both services share the bus
	testutil.AssertSameInstance(t, checkout.Orders.Bus, checkout.Billing.Bus)

	// The handler was injected into the bus after construction
	require.NotNil(t, checkout.Orders.Bus.Handler)

	checkout.Orders.Place("42")
	assert.Equal(t, []string{"order 42"}, checkout.Orders.Bus.Handler.(*OrderEventHandler).Seen())

	handler, err := l.Resolve(reflect.TypeFor[*EventHandlerBase]())
	require.NoError(t, err)
	testutil.AssertSameInstance(t, checkout.Orders.Bus.Handler, handler)
}

// TestIntegration_ErrorPropagation checks that a failure deep in the graph
// reaches the root intact and leaves the locator usable.
func TestIntegration_ErrorPropagation(t *testing.T) {
	var failures atomic.Int64

	l := testutil.NewLocatorBuilder(t).
		WithTypes(
			locator.Provide(NewFlakyStore),
			locator.Provide(NewStoreClient),
			locator.Provide(NewPlain),
		).
		WithOptions(locator.WithOnError(func(reflect.Type, error) {
			failures.Add(1)
		})).
		Build()

	flakyFail.Store(true)
	t.Cleanup(func() { flakyFail.Store(false) })

	_, err := locator.Resolve[*StoreClient](l)
	require.Error(t, err)

	ctorErr := testutil.AssertErrorType[locator.ConstructorError](t, err)
	assert.Equal(t, reflect.TypeFor[*FlakyStore](), ctorErr.Type)
	assert.ErrorIs(t, err, testutil.ErrConstructor)

	// Unrelated types still resolve
	testutil.AssertResolvable[*Plain](t, l)

	// Nothing was cached for the failed types; a retry succeeds
	flakyFail.Store(false)
	client := testutil.AssertResolvable[*StoreClient](t, l)
	assert.NotNil(t, client.Store)

	assert.EqualValues(t, 1, failures.Load())
}

// TestIntegration_LifecycleManagement initializes and disposes services in
// dependency order.
func TestIntegration_LifecycleManagement(t *testing.T) {
	events := &eventLog{}

	l := locator.New(locator.WithModules(locator.NewModule("lifecycle",
		locator.Provide(func() *eventLog { return events }),
		locator.Provide(NewTrackedPool),
		locator.Provide(NewTrackedCache),
	)))

	cache := testutil.AssertResolvable[*TrackedCache](t, l)
	require.NotNil(t, cache.Pool)

	require.NoError(t, l.Close())
	testutil.AssertClosed(t, l)

	assert.Equal(t, []string{
		"init pool",
		"init cache",
		"close cache",
		"close pool",
	}, events.Events())
}

// TestIntegration_RegisteredModules builds a locator from the process-wide
// registry, the way an application wires itself in init functions.
func TestIntegration_RegisteredModules(t *testing.T) {
	fixtures := testutil.UniqueName(t, "fixtures")
	app := testutil.UniqueName(t, "app")

	require.NoError(t, locator.RegisterModule(testutil.FixtureModule(fixtures)))
	require.NoError(t, locator.RegisterModule(locator.NewModule(app,
		locator.Requires(fixtures),
		locator.Provide(NewRequestHandler),
		locator.Provide(NewAuthMiddleware),
	)))

	err := locator.RegisterModule(locator.NewModule(app))
	assert.ErrorIs(t, err, locator.ErrModuleAlreadyAdded)

	l := testutil.NewLocatorBuilder(t).
		WithOptions(locator.WithModuleNames(app)).
		Build()

	assert.Equal(t, []string{app, fixtures}, l.Modules())

	handler := testutil.AssertResolvable[*RequestHandler](t, l)
	assert.NotNil(t, handler.Repo.DB.Logger)
}

// ============================================================================
// Integration Test Types
// ============================================================================

type AuthMiddleware struct {
	logger testutil.TestLogger
}

func NewAuthMiddleware(logger testutil.TestLogger) *AuthMiddleware {
	return &AuthMiddleware{logger: logger}
}

type RequestHandler struct {
	locator.AlwaysNew
	Repo *testutil.TestRepository
	Auth *AuthMiddleware
}

func NewRequestHandler(repo *testutil.TestRepository, auth *AuthMiddleware) *RequestHandler {
	return &RequestHandler{Repo: repo, Auth: auth}
}

func (h *RequestHandler) Serve(id string) {
	h.Auth.logger.Log("served " + id)
}

type Plugin interface {
	Name() string
	Execute(data string) string
}

type AuthPlugin struct{}
type AuditPlugin struct{}

func NewAuthPlugin() *AuthPlugin   { return &AuthPlugin{} }
func NewAuditPlugin() *AuditPlugin { return &AuditPlugin{} }

func (p *AuthPlugin) Name() string                { return "auth" }
func (p *AuthPlugin) Execute(data string) string  { return "auth: " + data }
func (p *AuditPlugin) Name() string               { return "audit" }
func (p *AuditPlugin) Execute(data string) string { return "audit: " + data }

type PluginManager struct {
	Plugins []Plugin
}

func NewPluginManager(plugins []Plugin) *PluginManager {
	return &PluginManager{Plugins: plugins}
}

func (m *PluginManager) ExecuteAll(data string) []string {
	results := make([]string, len(m.Plugins))
	for i, p := range m.Plugins {
		results[i] = p.Execute(data)
	}
	return results
}

type EventHandler interface {
	Handle(event string)
}

// EventBus receives its handler after construction, since the handler
// publishes through the bus.
type EventBus struct {
	Handler EventHandler `inject:""`
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Publish(event string) {
	if b.Handler != nil {
		b.Handler.Handle(event)
	}
}

type EventHandlerBase struct {
	locator.Abstract
}

type OrderEventHandler struct {
	EventHandlerBase
	Bus *EventBus

	mu   sync.Mutex
	seen []string
}

func NewOrderEventHandler(bus *EventBus) *OrderEventHandler {
	return &OrderEventHandler{Bus: bus}
}

func (h *OrderEventHandler) Handle(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event)
}

func (h *OrderEventHandler) Seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

type OrderService struct {
	Bus *EventBus
}

func NewOrderService(bus *EventBus) *OrderService {
	return &OrderService{Bus: bus}
}

func (s *OrderService) Place(id string) {
	s.Bus.Publish("order " + id)
}

type BillingService struct {
	Bus *EventBus
}

func NewBillingService(bus *EventBus) *BillingService {
	return &BillingService{Bus: bus}
}

type Checkout struct {
	Orders  *OrderService
	Billing *BillingService
}

func NewCheckout(orders *OrderService, billing *BillingService) *Checkout {
	return &Checkout{Orders: orders, Billing: billing}
}

var flakyFail atomic.Bool

type FlakyStore struct{}

func NewFlakyStore() (*FlakyStore, error) {
	if flakyFail.Load() {
		return nil, fmt.Errorf("connect: %w", testutil.ErrConstructor)
	}
	return &FlakyStore{}, nil
}

type StoreClient struct {
	Store *FlakyStore
}

func NewStoreClient(s *FlakyStore) *StoreClient {
	return &StoreClient{Store: s}
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) add(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *eventLog) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

type TrackedPool struct {
	events *eventLog
}

func NewTrackedPool(events *eventLog) *TrackedPool {
	return &TrackedPool{events: events}
}

func (p *TrackedPool) Initialize()  { p.events.add("init pool") }
func (p *TrackedPool) Close() error { p.events.add("close pool"); return nil }

type TrackedCache struct {
	Pool   *TrackedPool
	events *eventLog
}

func NewTrackedCache(events *eventLog, pool *TrackedPool) *TrackedCache {
	return &TrackedCache{Pool: pool, events: events}
}

func (c *TrackedCache) Initialize() { c.events.add("init cache") }

func (c *TrackedCache) Close() error {
	c.events.add("close cache")
	return nil
}
