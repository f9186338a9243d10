package container_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/busybody/framework/container"
)

// Each test owns its types so Global state never leaks between tests.
type (
	neverSet     struct{}
	roundTrip    struct{ n int }
	counterOnce  int
	counterPlain int
	proxyFlag    bool
	forgettable  struct{ v string }
	raceForget   struct{ n int32 }
	softProbe    string
	hotSingleton struct{ id int32 }
	flaky        struct{ attempt int }
	panicky      struct{}
	composite    struct {
		host string
		port int
	}
	hostname  string
	portNum   int
	sharedCfg struct{ dsn string }
	wideInt   int32
)

func TestGet_UnregisteredIsAbsent(t *testing.T) {
	ctx := context.Background()
	for _, s := range []*container.Scope{container.Global(), container.NewProxy()} {
		v, ok, err := container.Get[neverSet](ctx, s)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, v)
	}
}

func TestSet_RoundTripAndOverwrite(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()

	container.Set(s, roundTrip{n: 1})
	got, ok, err := container.Get[roundTrip](ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, roundTrip{n: 1}, got)

	container.Set(s, roundTrip{n: 2})
	got, ok, err = container.Get[roundTrip](ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, roundTrip{n: 2}, got)
}

func TestGet_MismatchedTypeIsAbsent(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()
	container.Set(s, wideInt(5))

	_, ok, err := container.Get[int32](ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterResolverOnce_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()

	var calls atomic.Int32
	container.RegisterResolverOnce(s, func(context.Context, *container.Scope) (counterOnce, error) {
		return counterOnce(calls.Add(1)), nil
	})

	for i := 0; i < 10; i++ {
		v, ok, err := container.Get[counterOnce](ctx, s)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, counterOnce(1), v)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRegisterResolver_RunsEveryTime(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()

	var calls atomic.Int32
	container.RegisterResolver(s, func(context.Context, *container.Scope) (counterPlain, error) {
		return counterPlain(calls.Add(1)), nil
	})

	for i := 1; i <= 10; i++ {
		v, ok, err := container.Get[counterPlain](ctx, s)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, counterPlain(i), v)
	}
	assert.Equal(t, int32(10), calls.Load())

	// a plain resolver never persists its output, so forgetting runs it once more
	v, ok, err := container.Forget[counterPlain](ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, counterPlain(11), v)
}

func TestProxy_FallbackAndWriteIsolation(t *testing.T) {
	ctx := context.Background()
	global := container.Global()
	container.Set(global, proxyFlag(true))
	t.Cleanup(func() { _, _, _ = container.Forget[proxyFlag](ctx, global) })

	proxy := container.NewProxy()
	v, ok, err := container.Get[proxyFlag](ctx, proxy)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, proxyFlag(true), v)

	container.Set(proxy, proxyFlag(false))
	v, _, _ = container.Get[proxyFlag](ctx, proxy)
	assert.Equal(t, proxyFlag(false), v)

	v, _, _ = container.Get[proxyFlag](ctx, global)
	assert.Equal(t, proxyFlag(true), v)
}

func TestProxy_IndependentStores(t *testing.T) {
	ctx := context.Background()
	a, b := container.NewProxy(), container.NewProxy()
	container.Set(a, roundTrip{n: 1})
	container.Set(b, roundTrip{n: 2})

	va := container.MustGet[roundTrip](ctx, a)
	vb := container.MustGet[roundTrip](ctx, b)
	assert.NotEqual(t, va, vb)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, container.KindProxy, a.Kind())
}

func TestForget_ResolverOnly(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()
	container.RegisterResolver(s, func(context.Context, *container.Scope) (forgettable, error) {
		return forgettable{v: "made"}, nil
	})

	v, ok, err := container.Forget[forgettable](ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, forgettable{v: "made"}, v)

	_, ok, err = container.Get[forgettable](ctx, s)
	require.NoError(t, err)
	assert.False(t, ok, "forget must clear the resolver as well")
}

func TestForget_OnceResolverLeavesNothingCached(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()
	container.RegisterResolverOnce(s, func(context.Context, *container.Scope) (forgettable, error) {
		return forgettable{v: "once"}, nil
	})

	v, ok, err := container.Forget[forgettable](ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "once", v.v)
	assert.False(t, container.Has[forgettable](s))
}

func TestForget_StoredValue(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()
	container.Set(s, forgettable{v: "stored"})
	container.RegisterResolver(s, func(context.Context, *container.Scope) (forgettable, error) {
		return forgettable{v: "resolved"}, nil
	})

	v, ok, err := container.Forget[forgettable](ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "stored", v.v)

	_, ok, _ = container.Forget[forgettable](ctx, s)
	assert.False(t, ok)
}

func TestForget_RacingOnceResolverCannotRestoreValue(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	container.RegisterResolverOnce(s, func(context.Context, *container.Scope) (raceForget, error) {
		n := calls.Add(1)
		if n == 1 {
			close(entered)
			<-release
		}
		return raceForget{n: n}, nil
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, _ = container.Get[raceForget](ctx, s)
	}()
	<-entered
	// queued behind the running construction
	go func() {
		defer wg.Done()
		_, _, _ = container.Get[raceForget](ctx, s)
	}()
	time.Sleep(10 * time.Millisecond)

	forgot := make(chan error, 1)
	go func() {
		_, _, err := container.Forget[raceForget](ctx, s)
		forgot <- err
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)

	require.NoError(t, <-forgot)
	wg.Wait()

	assert.False(t, container.Has[raceForget](s), "nothing may be cached once forgotten")
	_, ok, err := container.Get[raceForget](ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSoftRegisterResolver_DoesNotOverride(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()

	container.RegisterResolver(s, func(context.Context, *container.Scope) (softProbe, error) { return "r1", nil })
	installed := container.SoftRegisterResolver(s, func(context.Context, *container.Scope) (softProbe, error) { return "r2", nil })
	assert.False(t, installed)

	v := container.MustGet[softProbe](ctx, s)
	assert.Equal(t, softProbe("r1"), v)

	fresh := container.NewProxy()
	assert.True(t, container.SoftRegisterResolverOnce(fresh, func(context.Context, *container.Scope) (softProbe, error) { return "r3", nil }))
	assert.Equal(t, softProbe("r3"), container.MustGet[softProbe](ctx, fresh))
}

func TestRegisterResolverOnce_ConcurrentSingleConstruction(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()

	var built atomic.Int32
	container.RegisterResolverOnce(s, func(context.Context, *container.Scope) (*hotSingleton, error) {
		return &hotSingleton{id: built.Add(1)}, nil
	})

	const callers = 100
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		got   = make([]*hotSingleton, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = container.MustGet[*hotSingleton](ctx, s)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	for _, g := range got {
		assert.Same(t, got[0], g)
	}
}

func TestResolverError_PropagatesAndOnceRetries(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()
	errDown := errors.New("database is down")

	attempts := 0
	container.RegisterResolverOnce(s, func(context.Context, *container.Scope) (flaky, error) {
		attempts++
		if attempts == 1 {
			return flaky{}, errDown
		}
		return flaky{attempt: attempts}, nil
	})

	_, ok, err := container.Get[flaky](ctx, s)
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errDown)

	var re *container.ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, container.KeyOf[flaky](), re.Key)

	v, ok, err := container.Get[flaky](ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v.attempt)

	v = container.MustGet[flaky](ctx, s)
	assert.Equal(t, 2, v.attempt, "second attempt is cached")
}

func TestResolverPanic_Propagates(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()
	container.RegisterResolver(s, func(context.Context, *container.Scope) (panicky, error) {
		panic("resolver exploded")
	})

	assert.PanicsWithValue(t, "resolver exploded", func() {
		_, _, _ = container.Get[panicky](ctx, s)
	})
}

func TestResolver_ReentrantComposition(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()

	container.Set(s, hostname("localhost"))
	container.RegisterResolver(s, func(context.Context, *container.Scope) (portNum, error) { return 8080, nil })
	container.RegisterResolverOnce(s, func(ctx context.Context, s *container.Scope) (composite, error) {
		host, port, err := container.Resolve2[hostname, portNum](ctx, s)
		if err != nil {
			return composite{}, err
		}
		// writing into the same scope from inside a resolver must not deadlock
		container.Set(s, hostname("rewritten"))
		return composite{host: string(host), port: int(port)}, nil
	})

	got := container.MustGet[composite](ctx, s)
	assert.Equal(t, composite{host: "localhost", port: 8080}, got)
	assert.Equal(t, hostname("rewritten"), container.MustGet[hostname](ctx, s))
}

func TestRequire_MissingDependency(t *testing.T) {
	_, err := container.Require[neverSet](context.Background(), container.NewProxy())
	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrNotFound)

	var missing *container.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, container.KeyOf[neverSet](), missing.Key)

	assert.Panics(t, func() { container.MustGet[neverSet](context.Background(), container.NewProxy()) })
}

func TestSetShared_SamePointerForEveryCaller(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()
	p := container.SetShared(s, sharedCfg{dsn: "postgres://"})

	a, ok, err := container.GetShared[sharedCfg](ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	b, _, _ := container.GetShared[sharedCfg](ctx, s)
	assert.Same(t, p, a)
	assert.Same(t, a, b)

	_, ok, _ = container.Get[sharedCfg](ctx, s)
	assert.False(t, ok, "shared values live under *T, not T")

	got, ok, err := container.ForgetShared[sharedCfg](ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, p, got)
}

func TestGlobal_IsASingleton(t *testing.T) {
	assert.Same(t, container.Global(), container.Global())
	assert.Equal(t, container.KindGlobal, container.Global().Kind())
	assert.Equal(t, uuid.Nil, container.Global().ID())
	assert.Equal(t, "global:"+uuid.Nil.String(), container.Global().String())
}

func TestScope_CloneSharesStore(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()
	c := s.Clone()
	container.Set(c, roundTrip{n: 9})

	assert.Equal(t, roundTrip{n: 9}, container.MustGet[roundTrip](ctx, s))
	assert.Equal(t, s.ID(), c.ID())
	c.Release() // no-op for proxies
	assert.Equal(t, roundTrip{n: 9}, container.MustGet[roundTrip](ctx, s))
}

func TestScope_Keys(t *testing.T) {
	s := container.NewProxy()
	container.Set(s, hostname("h"))
	container.RegisterResolver(s, func(context.Context, *container.Scope) (portNum, error) { return 1, nil })
	container.RegisterResolver(s, func(context.Context, *container.Scope) (hostname, error) { return "r", nil })

	assert.Equal(t, []container.TypeKey{
		container.KeyOf[hostname](),
		container.KeyOf[portNum](),
	}, s.Keys())
}

func TestRegisterResolver_NilPanics(t *testing.T) {
	assert.PanicsWithValue(t, container.ErrNilResolver, func() {
		container.RegisterResolver[neverSet](container.NewProxy(), nil)
	})
}

type selfMade struct{ name string }

func (selfMade) Resolve(ctx context.Context, s *container.Scope) (selfMade, error) {
	host, err := container.Require[hostname](ctx, s)
	return selfMade{name: string(host)}, err
}

func TestRegisterResolvable(t *testing.T) {
	ctx := context.Background()
	s := container.NewProxy()
	container.Set(s, hostname("resolvable"))

	container.RegisterResolvable[selfMade](s)
	assert.Equal(t, "resolvable", container.MustGet[selfMade](ctx, s).name)
	assert.False(t, container.SoftRegisterResolvable[selfMade](s))

	once := container.NewProxy()
	container.Set(once, hostname("first"))
	container.RegisterResolvableOnce[selfMade](once)
	assert.Equal(t, "first", container.MustGet[selfMade](ctx, once).name)
	container.Set(once, hostname("second"))
	assert.Equal(t, "first", container.MustGet[selfMade](ctx, once).name)
}
