package session

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aouyang1/go-demand-forecaster/record"
)

func baseStore() *record.Store {
	return record.NewStore([]record.DemandRecord{
		{WarehouseID: "Whse_A", ProductCode: "Product_0001", ProductCategory: "Category_001", Date: time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC), OrderDemand: 100},
		{WarehouseID: "Whse_J", ProductCode: "Product_0002", ProductCategory: "Category_002", Date: time.Date(2016, 1, 5, 0, 0, 0, 0, time.UTC), OrderDemand: 5},
	})
}

func TestAcquire(t *testing.T) {
	base := baseStore()
	m := NewManager(base, 8, time.Minute)

	first, created := m.Acquire("")
	require.True(t, created)
	_, err := uuid.Parse(first.ID)
	require.Nil(t, err)
	assert.Equal(t, base.Records(), first.Store.Records())

	again, created := m.Acquire(first.ID)
	assert.False(t, created)
	assert.Same(t, first, again)

	second, created := m.Acquire("not-a-uuid")
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotSame(t, first.Store, second.Store)
	assert.Equal(t, 2, m.Len())

	unknown, created := m.Acquire(uuid.NewString())
	assert.True(t, created)
	assert.Equal(t, 3, m.Len())
	assert.NotEmpty(t, unknown.ID)
}

func TestIsolation(t *testing.T) {
	m := NewManager(baseStore(), 8, time.Minute)
	a, _ := m.Acquire("")
	b, _ := m.Acquire("")

	// the records handed out are copies
	recs := a.Store.Records()
	recs[0].OrderDemand = -1
	assert.Equal(t, int64(100), a.Store.Records()[0].OrderDemand)
	assert.Equal(t, int64(100), b.Store.Records()[0].OrderDemand)
	assert.Equal(t, []string{"Whse_A", "Whse_J"}, b.Store.Warehouses())
}

func TestEviction(t *testing.T) {
	var mu sync.Mutex
	var evicted []string

	m := NewManager(baseStore(), 2, time.Minute)
	m.OnEvict = func(id string) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, id)
	}

	a, _ := m.Acquire("")
	m.Acquire("")
	m.Acquire("")

	_, exists := m.Get(a.ID)
	assert.False(t, exists)
	assert.Equal(t, 2, m.Len())

	mu.Lock()
	assert.Equal(t, []string{a.ID}, evicted)
	mu.Unlock()

	m.Purge()
	assert.Equal(t, 0, m.Len())
}

func TestExpiry(t *testing.T) {
	m := NewManager(baseStore(), 8, 20*time.Millisecond)
	a, _ := m.Acquire("")
	time.Sleep(50 * time.Millisecond)

	_, exists := m.Get(a.ID)
	assert.False(t, exists)
}

func TestMiddleware(t *testing.T) {
	m := NewManager(baseStore(), 8, time.Minute)

	var seen []string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = append(seen, sess.ID)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 60, cookies[0].MaxAge)

	// returning visitor keeps the session and gets no new cookie
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies())

	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
	assert.Equal(t, cookies[0].Value, seen[0])

	_, ok := FromContext(req.Context())
	assert.False(t, ok)
}

func TestMiddlewareLazy(t *testing.T) {
	m := NewManager(baseStore(), 8, time.Minute)

	var peeked bool
	passive := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, peeked = Peek(r.Context())
		assert.Same(t, m.base, m.Base())
		w.WriteHeader(http.StatusNoContent)
	}))

	// requests that never read the session leave the cache alone
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		passive.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Empty(t, rec.Result().Cookies())
	}
	assert.False(t, peeked)
	assert.Equal(t, 0, m.Len())

	active := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first, ok := FromContext(r.Context())
		require.True(t, ok)
		second, ok := FromContext(r.Context())
		require.True(t, ok)
		assert.Same(t, first, second)
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	active.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, 1, m.Len())

	// a returning visitor is visible to Peek without a new session
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	passive.ServeHTTP(rec, req)
	assert.True(t, peeked)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, m.Len())
}
