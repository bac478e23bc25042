// Command authcoord-sim drives several coordinator instances against a
// built-in fake auth backend and reports whether they converge.
//
// Each simulated tab is one Coordinator. Tabs share a synchronization bus
// (in-process by default, Redis Pub/Sub with -redis-addr) and perform a
// random mix of operations. At the end every tab must agree on the session
// state and CSRF token.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authcoord "github.com/veldtma/authcoord"
	"github.com/veldtma/authcoord/bus"
	"github.com/veldtma/authcoord/bus/redisbus"
	"github.com/veldtma/authcoord/kv"
	"github.com/veldtma/authcoord/kv/rediskv"
	promexport "github.com/veldtma/authcoord/metrics/export/prometheus"
)

func main() {
	var (
		tabs        = flag.Int("tabs", 4, "number of simulated tabs")
		ops         = flag.Int("ops", 200, "operations per tab")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or in-process bus is used")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics for tab 0 on this address")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	if *tabs <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tabs and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	server := newFakeAuthServer()
	backend := httptest.NewServer(server)
	defer backend.Close()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	coords, cleanup, err := buildTabs(ctx, *tabs, backend.URL, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if *metricsAddr != "" {
		collector := promexport.NewCollector(coords[0])
		go func() {
			_ = http.ListenAndServe(*metricsAddr, collector.Handler())
		}()
	}

	rng := rand.New(rand.NewSource(*seed))
	var wg sync.WaitGroup
	for i, coord := range coords {
		wg.Add(1)
		tabRng := rand.New(rand.NewSource(rng.Int63()))
		go func(tab int, c *authcoord.Coordinator, r *rand.Rand) {
			defer wg.Done()
			runTab(ctx, tab, c, r, *ops)
		}(i, coord, tabRng)
	}
	wg.Wait()

	// Let in-flight broadcasts settle before comparing.
	time.Sleep(200 * time.Millisecond)

	if err := checkConvergence(coords); err != nil {
		fmt.Fprintf(os.Stderr, "DIVERGED: %v\n", err)
		os.Exit(1)
	}

	snap := coords[0].MetricsSnapshot()
	fmt.Printf("converged across %d tabs after %d ops each\n", *tabs, *ops)
	fmt.Printf("logins=%d logouts=%d refreshes=%d validations=%d bus_applied=%d stale_discarded=%d\n",
		snap.Counters[authcoord.MetricLoginSuccess],
		snap.Counters[authcoord.MetricLogout],
		snap.Counters[authcoord.MetricRefreshSuccess],
		snap.Counters[authcoord.MetricValidateAccepted],
		snap.Counters[authcoord.MetricBusApplied],
		snap.Counters[authcoord.MetricStaleResultDiscarded],
	)
}

func buildTabs(ctx context.Context, tabs int, baseURL, redisAddr string) ([]*authcoord.Coordinator, func(), error) {
	cfg := authcoord.DefaultConfig()
	cfg.Transport.BaseURL = baseURL
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	// Tabs of one browser share the cookie store.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, nil, err
	}
	httpClient := &http.Client{Jar: jar}

	var (
		coords   []*authcoord.Coordinator
		closers  []func()
		hub      *bus.Hub
		client   redis.UniversalClient
		usingRds = redisAddr != ""
	)
	cleanup := func() {
		for _, c := range coords {
			_ = c.Close()
		}
		for _, fn := range closers {
			fn()
		}
	}

	if usingRds {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{redisAddr}})
		closers = append(closers, func() { _ = client.Close() })
	} else {
		if mr, err := miniredis.Run(); err == nil {
			client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
			closers = append(closers, func() { _ = client.Close() }, mr.Close)
		}
		hub = bus.NewHub()
	}

	// All tabs of one browser share the durable per-origin store.
	var storage kv.Store
	if client != nil {
		storage = rediskv.NewStore(client, "authcoord-sim", cfg.Session.MaxLifetime)
	} else {
		storage = kv.NewMemory()
	}

	for i := 0; i < tabs; i++ {
		var (
			mb  bus.Bus
			err error
		)
		if usingRds {
			mb, err = redisbus.New(client, cfg.Bus.Channel)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
		} else {
			mb = hub.Join()
		}

		coord, err := authcoord.New().
			WithConfig(cfg).
			WithHTTPClient(httpClient).
			WithStorage(storage).
			WithBus(mb).
			Build(ctx)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		coords = append(coords, coord)
	}
	return coords, cleanup, nil
}

func runTab(ctx context.Context, tab int, c *authcoord.Coordinator, rng *rand.Rand, ops int) {
	for i := 0; i < ops; i++ {
		switch rng.Intn(10) {
		case 0, 1, 2:
			_, _ = c.Login(ctx, authcoord.Credentials{
				Email:    fmt.Sprintf("tab%d@example.com", tab),
				Password: "hunter2-hunter2",
			})
		case 3:
			_ = c.Logout(ctx)
		case 4, 5:
			_, _ = c.Refresh(ctx)
		case 6, 7, 8:
			_, _ = c.Validate(ctx)
		default:
			_ = c.View()
		}
	}
}

func checkConvergence(coords []*authcoord.Coordinator) error {
	want := coords[0].View()
	for i, c := range coords[1:] {
		got := c.View()
		if got.Authenticated != want.Authenticated {
			return fmt.Errorf("tab %d authenticated=%v, tab 0 authenticated=%v",
				i+1, got.Authenticated, want.Authenticated)
		}
		if want.Authenticated && got.Session.UserID != want.Session.UserID {
			return fmt.Errorf("tab %d user %q, tab 0 user %q",
				i+1, got.Session.UserID, want.Session.UserID)
		}
	}
	return nil
}

// fakeAuthServer is a minimal cookie-session backend speaking the
// coordinator's wire format.
type fakeAuthServer struct {
	mu       sync.Mutex
	sessions map[string]string // cookie value -> user id
	next     int
}

func newFakeAuthServer() *fakeAuthServer {
	return &fakeAuthServer{sessions: map[string]string{}}
}

func (s *fakeAuthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/login", "/api/auth/register":
		s.handleLogin(w, r)
	case "/api/auth/logout":
		s.handleLogout(w, r)
	case "/api/auth/refresh":
		s.handleRefresh(w, r)
	case "/api/auth/validate":
		s.handleValidate(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *fakeAuthServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.next++
	cookie := fmt.Sprintf("sid-%d", s.next)
	s.sessions[cookie] = req.Email
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "sid", Value: cookie, Path: "/"})
	writeJSON(w, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":        req.Email,
			"email":     req.Email,
			"expiresAt": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		},
		"csrfToken": fmt.Sprintf("csrf-%d", s.next),
	})
}

func (s *fakeAuthServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("sid"); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *fakeAuthServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]any{
			"success": false,
			"error":   map[string]any{"type": "session_invalid", "message": "no session"},
		})
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"session": map[string]any{
			"id":        user,
			"email":     user,
			"expiresAt": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		},
	})
}

func (s *fakeAuthServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]any{"valid": false})
		return
	}
	writeJSON(w, map[string]any{
		"valid": true,
		"user":  map[string]any{"id": user, "email": user},
	})
}

func (s *fakeAuthServer) user(r *http.Request) (string, bool) {
	cookie, err := r.Cookie("sid")
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.sessions[cookie.Value]
	return user, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
