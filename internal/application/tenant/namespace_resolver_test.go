package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagesync/backend/internal/domain/tenant"
)

// fakeNamespaceRepo is an in-memory NamespaceRepository for tests
type fakeNamespaceRepo struct {
	mu          sync.Mutex
	namespaces  []tenant.Namespace
	listCalls   int
	createCalls int
	listErr     error
	createErr   error
	createDelay time.Duration
}

func (f *fakeNamespaceRepo) ListActive(ctx context.Context) ([]tenant.Namespace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]tenant.Namespace, 0, len(f.namespaces))
	for _, ns := range f.namespaces {
		if ns.Active {
			out = append(out, ns)
		}
	}
	return out, nil
}

func (f *fakeNamespaceRepo) FindByName(ctx context.Context, name string) (*tenant.Namespace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.namespaces {
		if f.namespaces[i].Name == name {
			ns := f.namespaces[i]
			return &ns, nil
		}
	}
	return nil, tenant.ErrNamespaceNotFound
}

func (f *fakeNamespaceRepo) Create(ctx context.Context, ns *tenant.Namespace) error {
	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	if ns.IsDefault {
		for i := range f.namespaces {
			if f.namespaces[i].IsDefault && f.namespaces[i].Active {
				return tenant.ErrDefaultConflict
			}
		}
	}
	f.namespaces = append(f.namespaces, *ns)
	return nil
}

func (f *fakeNamespaceRepo) Update(ctx context.Context, ns *tenant.Namespace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.namespaces {
		if f.namespaces[i].Name == ns.Name {
			f.namespaces[i] = *ns
			return nil
		}
	}
	return tenant.ErrNamespaceNotFound
}

func mustNamespace(t *testing.T, name string, keywords []string, isDefault bool) tenant.Namespace {
	t.Helper()
	ns, err := tenant.NewNamespace(name, keywords, "", isDefault)
	require.NoError(t, err)
	return *ns
}

func TestNamespaceResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	newResolver := func(t *testing.T) (*NamespaceResolver, *fakeNamespaceRepo) {
		repo := &fakeNamespaceRepo{namespaces: []tenant.Namespace{
			mustNamespace(t, "acme", []string{"acme", "roadrunner"}, false),
			mustNamespace(t, "globex", []string{"globex"}, false),
			mustNamespace(t, "fallback", []string{tenant.DefaultKeyword}, true),
		}}
		return NewNamespaceResolver(repo, time.Minute, nil), repo
	}

	t.Run("empty name routes to default", func(t *testing.T) {
		r, _ := newResolver(t)
		ns, err := r.Resolve(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "fallback", ns.Name)
	})

	t.Run("keyword substring match is case-insensitive", func(t *testing.T) {
		r, _ := newResolver(t)
		ns, err := r.Resolve(ctx, "Q3 ACME Outbound Push")
		require.NoError(t, err)
		assert.Equal(t, "acme", ns.Name)
	})

	t.Run("first matching namespace wins in creation order", func(t *testing.T) {
		r, _ := newResolver(t)
		ns, err := r.Resolve(ctx, "globex warmup")
		require.NoError(t, err)
		assert.Equal(t, "globex", ns.Name)
	})

	t.Run("no match falls back to default", func(t *testing.T) {
		r, _ := newResolver(t)
		ns, err := r.Resolve(ctx, "untagged campaign")
		require.NoError(t, err)
		assert.Equal(t, "fallback", ns.Name)
	})

	t.Run("never returns nil for any input", func(t *testing.T) {
		r, _ := newResolver(t)
		for _, name := range []string{"", "x", "ACME", "完全不匹配", "default"} {
			ns, err := r.Resolve(ctx, name)
			require.NoError(t, err)
			require.NotNil(t, ns, "input %q", name)
		}
	})
}

func TestNamespaceResolver_LazyDefaultCreation(t *testing.T) {
	ctx := context.Background()
	repo := &fakeNamespaceRepo{namespaces: []tenant.Namespace{
		mustNamespace(t, "acme", []string{"acme"}, false),
	}}
	r := NewNamespaceResolver(repo, time.Minute, nil)

	ns, err := r.Resolve(ctx, "nothing matches this")
	require.NoError(t, err)
	require.NotNil(t, ns)
	assert.True(t, ns.IsDefault)
	assert.True(t, ns.HasKeyword(tenant.DefaultKeyword))
	assert.Contains(t, ns.Name, "default-")

	// The created default is now part of the registry
	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestNamespaceResolver_ConcurrentLazyDefaultCreatesOne(t *testing.T) {
	ctx := context.Background()
	repo := &fakeNamespaceRepo{
		namespaces:  []tenant.Namespace{mustNamespace(t, "acme", []string{"acme"}, false)},
		createDelay: 10 * time.Millisecond,
	}
	r := NewNamespaceResolver(repo, time.Minute, nil)

	const runs = 8
	names := make([]string, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ns, err := r.Resolve(ctx, "")
			if err != nil {
				errs[i] = err
				return
			}
			names[i] = ns.Name
		}(i)
	}
	wg.Wait()

	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
	}

	defaults := 0
	for _, ns := range repo.namespaces {
		if ns.IsDefault && ns.Active {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults, "exactly one active default namespace")
	assert.Equal(t, 1, repo.createCalls, "creation runs once, waiters reuse it")
	for i := 1; i < runs; i++ {
		assert.Equal(t, names[0], names[i], "every caller resolves to the same default")
	}
}

// racingDefaultRepo simulates another process inserting the default between
// this resolver's registry read and its insert attempt: the list shows no
// default until Create has been tried once and rejected.
type racingDefaultRepo struct {
	fakeNamespaceRepo
	winner tenant.Namespace
}

func (f *racingDefaultRepo) ListActive(ctx context.Context) ([]tenant.Namespace, error) {
	f.mu.Lock()
	tried := f.createCalls > 0
	f.mu.Unlock()
	namespaces, err := f.fakeNamespaceRepo.ListActive(ctx)
	if err != nil || !tried {
		return namespaces, err
	}
	return append(namespaces, f.winner), nil
}

func (f *racingDefaultRepo) Create(ctx context.Context, ns *tenant.Namespace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if ns.IsDefault {
		return tenant.ErrDefaultConflict
	}
	f.namespaces = append(f.namespaces, *ns)
	return nil
}

func TestNamespaceResolver_LostDefaultRaceAdoptsWinner(t *testing.T) {
	winner := mustNamespace(t, "default-winner", []string{tenant.DefaultKeyword}, true)
	repo := &racingDefaultRepo{winner: winner}
	r := NewNamespaceResolver(repo, time.Minute, nil)

	ns, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, ns)
	assert.Equal(t, "default-winner", ns.Name)
}

func TestNamespaceResolver_DefaultCreationFailureIsFatal(t *testing.T) {
	repo := &fakeNamespaceRepo{createErr: errors.New("registry down")}
	r := NewNamespaceResolver(repo, time.Minute, nil)

	_, err := r.Resolve(context.Background(), "anything")
	assert.ErrorIs(t, err, tenant.ErrDefaultCreateFailed)
}

func TestNamespaceResolver_Caching(t *testing.T) {
	ctx := context.Background()
	repo := &fakeNamespaceRepo{namespaces: []tenant.Namespace{
		mustNamespace(t, "fallback", []string{tenant.DefaultKeyword}, true),
	}}
	r := NewNamespaceResolver(repo, time.Minute, nil)

	for i := 0; i < 5; i++ {
		_, err := r.Resolve(ctx, "whatever")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.listCalls, "repeated resolves within TTL hit the cache")

	r.Invalidate()
	_, err := r.Resolve(ctx, "whatever")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls, "invalidation forces a reload")
}

func TestNamespaceService_Create(t *testing.T) {
	ctx := context.Background()

	newService := func(t *testing.T) (*NamespaceService, *fakeNamespaceRepo, *NamespaceResolver) {
		repo := &fakeNamespaceRepo{namespaces: []tenant.Namespace{
			mustNamespace(t, "acme", []string{"acme"}, false),
			mustNamespace(t, "fallback", []string{tenant.DefaultKeyword}, true),
		}}
		resolver := NewNamespaceResolver(repo, time.Minute, nil)
		return NewNamespaceService(repo, resolver), repo, resolver
	}

	t.Run("creates namespace with normalized keywords", func(t *testing.T) {
		svc, _, _ := newService(t)
		ns, err := svc.Create(ctx, CreateInput{Name: "globex", Keywords: []string{" Globex ", "GLOBEX", "hank"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"globex", "hank"}, ns.Keywords)
		assert.True(t, ns.Active)
	})

	t.Run("rejects overlapping keywords", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.Create(ctx, CreateInput{Name: "copycat", Keywords: []string{"ACME"}})
		assert.ErrorIs(t, err, tenant.ErrKeywordOverlap)
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.Create(ctx, CreateInput{Name: "acme", Keywords: []string{"fresh"}})
		assert.ErrorIs(t, err, tenant.ErrNamespaceAlreadyExists)
	})

	t.Run("invalidates the resolver cache", func(t *testing.T) {
		svc, repo, resolver := newService(t)
		_, err := resolver.Resolve(ctx, "x")
		require.NoError(t, err)
		before := repo.listCalls

		_, err = svc.Create(ctx, CreateInput{Name: "initech", Keywords: []string{"initech"}})
		require.NoError(t, err)

		ns, err := resolver.Resolve(ctx, "initech relaunch")
		require.NoError(t, err)
		assert.Equal(t, "initech", ns.Name)
		assert.Greater(t, repo.listCalls, before)
	})
}

func TestNamespaceService_Update(t *testing.T) {
	ctx := context.Background()
	repo := &fakeNamespaceRepo{namespaces: []tenant.Namespace{
		mustNamespace(t, "acme", []string{"acme"}, false),
		mustNamespace(t, "globex", []string{"globex"}, false),
	}}
	resolver := NewNamespaceResolver(repo, time.Minute, nil)
	svc := NewNamespaceService(repo, resolver)

	t.Run("updates keywords", func(t *testing.T) {
		ns, err := svc.Update(ctx, "acme", UpdateInput{Keywords: []string{"acme", "wile"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"acme", "wile"}, ns.Keywords)
	})

	t.Run("rejects overlap with another namespace", func(t *testing.T) {
		_, err := svc.Update(ctx, "acme", UpdateInput{Keywords: []string{"globex"}})
		assert.ErrorIs(t, err, tenant.ErrKeywordOverlap)
	})

	t.Run("deactivates a namespace", func(t *testing.T) {
		inactive := false
		ns, err := svc.Update(ctx, "globex", UpdateInput{Active: &inactive})
		require.NoError(t, err)
		assert.False(t, ns.Active)
	})

	t.Run("unknown namespace errors", func(t *testing.T) {
		_, err := svc.Update(ctx, "nope", UpdateInput{})
		assert.ErrorIs(t, err, tenant.ErrNamespaceNotFound)
	})
}
