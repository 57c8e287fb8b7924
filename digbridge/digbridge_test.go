package digbridge_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/junioryono/locator"
	"github.com/junioryono/locator/digbridge"
	"github.com/junioryono/locator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
)

var errUnavailable = errors.New("unavailable")

type Broken struct{}

func NewBroken() (*Broken, error) { return nil, errUnavailable }

type Base struct {
	locator.Abstract
}

type Impl struct {
	Base
}

// Consumer is built by dig from locator-provided types.
type Consumer struct {
	Repo   *testutil.TestRepository
	Logger testutil.TestLogger
}

func fixtureLocator(t *testing.T, extra ...locator.ModuleOption) *locator.Locator {
	return testutil.NewLocatorBuilder(t).
		WithModules(testutil.FixtureModule(testutil.UniqueName(t, "fixtures"))).
		WithTypes(extra...).
		Build()
}

func TestProvide(t *testing.T) {
	l := fixtureLocator(t)
	c := dig.New()

	require.NoError(t, digbridge.Provide(c, l,
		reflect.TypeFor[*testutil.TestRepository](),
		reflect.TypeFor[testutil.TestLogger](),
	))
	require.NoError(t, c.Provide(func(repo *testutil.TestRepository, logger testutil.TestLogger) *Consumer {
		return &Consumer{Repo: repo, Logger: logger}
	}))

	var consumer *Consumer
	require.NoError(t, c.Invoke(func(cons *Consumer) { consumer = cons }))

	// dig receives the locator's singletons
	testutil.AssertSameInstance(t, testutil.AssertResolvable[*testutil.TestRepository](t, l), consumer.Repo)
	testutil.AssertSameInstance(t, testutil.AssertResolvable[testutil.TestLogger](t, l), consumer.Logger)
}

func TestProvideType(t *testing.T) {
	l := fixtureLocator(t)
	c := dig.New()

	require.NoError(t, digbridge.ProvideType[*testutil.TestPluginHost](c, l))

	require.NoError(t, c.Invoke(func(host *testutil.TestPluginHost) {
		assert.Len(t, host.Plugins, 3)
	}))
}

func TestProvideAll(t *testing.T) {
	l := fixtureLocator(t)
	c := dig.New()

	require.NoError(t, digbridge.ProvideAll(c, l))

	require.NoError(t, c.Invoke(func(
		svc *testutil.TestService,
		db *testutil.TestDatabase,
		plugin *testutil.TestPluginB,
	) {
		assert.NotEmpty(t, svc.ID)
		assert.Equal(t, "primary", db.Name)
		assert.Equal(t, "b", plugin.PluginName())
	}))

	t.Run("types are provided once", func(t *testing.T) {
		err := digbridge.ProvideAll(c, l)
		require.Error(t, err)
		testutil.AssertErrorType[locator.RegistrationError](t, err)
	})
}

func TestProvide_Errors(t *testing.T) {
	l := fixtureLocator(t, locator.Declare[*Base](), locator.Declare[*Impl]())

	tests := []struct {
		name  string
		c     *dig.Container
		l     *locator.Locator
		types []reflect.Type
		check func(t *testing.T, err error)
	}{
		{
			name: "nil container",
			c:    nil,
			l:    l,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, digbridge.ErrContainerNil)
			},
		},
		{
			name: "nil locator",
			c:    dig.New(),
			l:    nil,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, locator.ErrLocatorNil)
			},
		},
		{
			name:  "nil type",
			c:     dig.New(),
			l:     l,
			types: []reflect.Type{nil},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, locator.ErrTypeNil)
			},
		},
		{
			name:  "value type",
			c:     dig.New(),
			l:     l,
			types: []reflect.Type{reflect.TypeFor[string]()},
			check: func(t *testing.T, err error) {
				testutil.AssertErrorType[locator.InvalidTargetError](t, err)
			},
		},
		{
			name:  "slice type",
			c:     dig.New(),
			l:     l,
			types: []reflect.Type{reflect.TypeFor[[]*Impl]()},
			check: func(t *testing.T, err error) {
				target := testutil.AssertErrorType[locator.InvalidTargetError](t, err)
				assert.Equal(t, reflect.TypeFor[[]*Impl](), target.Type)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := digbridge.Provide(tt.c, tt.l, tt.types...)
			require.Error(t, err)
			tt.check(t, err)
		})
	}

	t.Run("nil locator for all", func(t *testing.T) {
		assert.ErrorIs(t, digbridge.ProvideAll(dig.New(), nil), locator.ErrLocatorNil)
	})
}

func TestProvide_AbstractClass(t *testing.T) {
	l := fixtureLocator(t, locator.Declare[*Base](), locator.Declare[*Impl]())
	c := dig.New()

	require.NoError(t, digbridge.ProvideType[*Base](c, l))

	impl := testutil.AssertResolvable[*Impl](t, l)
	require.NoError(t, c.Invoke(func(base *Base) {
		assert.Same(t, &impl.Base, base)
	}))
}

func TestProvide_ResolutionError(t *testing.T) {
	l := fixtureLocator(t, locator.Provide(NewBroken))
	c := dig.New()

	require.NoError(t, digbridge.ProvideType[*Broken](c, l))

	err := c.Invoke(func(*Broken) {})
	require.Error(t, err)

	cause := dig.RootCause(err)
	assert.ErrorIs(t, cause, errUnavailable)
	testutil.AssertErrorType[locator.ConstructorError](t, cause)
}
