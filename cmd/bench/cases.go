// README: Smoke checks for a deployed quote-api: environment, rate tables, estimates, quote flow, send race and load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

// dayTrip is a round trip that lands on a tabulated band for the shipped rate tables.
var dayTrip = map[string]any{
	"trip": map[string]any{
		"distance_km":     120,
		"drive_minutes":   180,
		"on_site_minutes": 300,
		"number_of_days":  1,
		"round_trip":      true,
	},
	"passenger_count": 45,
	"departure_dept":  "75",
	"arrival_dept":    "14",
	"country_code":    "FR",
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "dsn not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "SKIP", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "dsn not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table: " + t}
					}
				}
				return Result{Status: "PASS", Note: fmt.Sprintf("%d tables", len(tables))}
			},
		},
		{
			Name: "Rate tables: imported",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "dsn not configured"}
				}
				var version string
				if err := r.db.QueryRow(ctx, `SELECT version FROM rate_table_meta WHERE id = 1`).Scan(&version); err != nil {
					return Result{Status: "FAIL", Note: "run quotectl ratetable import: " + err.Error()}
				}
				return Result{Status: "PASS", Note: "version=" + version}
			},
		},
		statusCase("API: health", http.MethodGet, base+"/health", "", nil, http.StatusOK),
		statusCase("API: metrics exposed", http.MethodGet, base+"/metrics", "", nil, http.StatusOK),
		statusCase("Auth: estimate without token -> 401", http.MethodPost, base+"/api/estimates", "", dayTrip, http.StatusUnauthorized),

		r.authed(statusCase("Estimate: day trip", http.MethodPost, base+"/api/estimates", r.cfg.Token, dayTrip, http.StatusOK)),
		r.authed(statusCase("Estimate: missing country -> 400", http.MethodPost, base+"/api/estimates", r.cfg.Token,
			map[string]any{"trip": map[string]any{"distance_km": 50}, "passenger_count": 10}, http.StatusBadRequest)),
		r.authed(statusCase("Estimate: zero distance -> 400", http.MethodPost, base+"/api/estimates", r.cfg.Token,
			map[string]any{"trip": map[string]any{"distance_km": 0}, "passenger_count": 10, "country_code": "FR"}, http.StatusBadRequest)),
		r.authed(statusCase("Estimate: zero passengers -> 400", http.MethodPost, base+"/api/estimates", r.cfg.Token,
			map[string]any{"trip": map[string]any{"distance_km": 50, "drive_minutes": 60}, "passenger_count": 0, "country_code": "FR"}, http.StatusBadRequest)),
		{
			Name: "Cache: snapshot cached after estimate",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "SKIP", Note: "redis not configured"}
				}
				n, err := r.redis.Exists(ctx, "ratetable:snapshot").Result()
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if n == 0 {
					return Result{Status: "SKIP", Note: "no cached snapshot; server may read a rate-table file"}
				}
				return Result{Status: "PASS"}
			},
		},
		r.authed(TestCase{
			Name: "Quote: create, read, send",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				id, err := r.createQuote(ctx)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if code, _, err := r.do(ctx, http.MethodGet, base+"/api/quotes/"+id, r.cfg.Token, nil); err != nil || code != http.StatusOK {
					return Result{Status: "FAIL", Note: fmt.Sprintf("get status=%d err=%v", code, err)}
				}
				code, body, err := r.do(ctx, http.MethodPost, base+"/api/quotes/"+id+"/send", r.cfg.Token, map[string]any{"reviewed": true})
				if err != nil || code != http.StatusOK {
					return Result{Status: "FAIL", Note: fmt.Sprintf("send status=%d err=%v", code, err)}
				}
				var q struct {
					Status string `json:"status"`
				}
				_ = json.Unmarshal(body, &q)
				if q.Status != "sent" {
					return Result{Status: "FAIL", Note: "status=" + q.Status}
				}
				return Result{Status: "PASS", Latency: time.Since(start), Note: "id=" + id}
			},
		}),
		r.authed(TestCase{
			Name: "Quote: concurrent send (only one wins)",
			Run: func(ctx context.Context, r *Runner) Result {
				id, err := r.createQuote(ctx)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return concurrentSend(ctx, r, base+"/api/quotes/"+id+"/send")
			},
		}),
		r.authed(TestCase{
			Name: "Perf: estimate load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/api/estimates", dayTrip)
			},
		}),
	}
}

// authed skips a case when no token was supplied.
func (r *Runner) authed(tc TestCase) TestCase {
	if r.cfg.Token != "" {
		return tc
	}
	name := tc.Name
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: "SKIP", Note: "token not configured"}
		},
	}
}

func statusCase(name, method, url, token string, payload any, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			code, _, err := r.do(ctx, method, url, token, payload)
			latency := time.Since(start)
			if err != nil {
				return Result{Status: "FAIL", Latency: latency, Note: err.Error()}
			}
			if code != want {
				return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d want=%d", code, want)}
			}
			return Result{Status: "PASS", Latency: latency}
		},
	}
}

func (r *Runner) do(ctx context.Context, method, url, token string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

func (r *Runner) createQuote(ctx context.Context) (string, error) {
	payload := map[string]any{"client_id": r.cfg.ClientID}
	for k, v := range dayTrip {
		payload[k] = v
	}
	code, body, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/quotes", r.cfg.Token, payload)
	if err != nil {
		return "", err
	}
	if code != http.StatusCreated {
		return "", fmt.Errorf("create status=%d", code)
	}
	var q struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &q); err != nil || q.ID == "" {
		return "", fmt.Errorf("create: unreadable response")
	}
	return q.ID, nil
}

func concurrentSend(ctx context.Context, r *Runner, url string) Result {
	wg := sync.WaitGroup{}
	succ, conflicts := 0, 0
	mu := sync.Mutex{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _, err := r.do(ctx, http.MethodPost, url, r.cfg.Token, map[string]any{"reviewed": true})
			if err != nil {
				return
			}
			mu.Lock()
			switch code {
			case http.StatusOK:
				succ++
			case http.StatusConflict:
				conflicts++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d", succ, conflicts)
	if succ == 1 && succ+conflicts == r.cfg.Concurrency {
		return Result{Status: "PASS", Note: note}
	}
	return Result{Status: "FAIL", Note: note}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var latencies []time.Duration
	var errCount int
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				start := time.Now()
				code, _, err := r.do(ctx, http.MethodPost, url, r.cfg.Token, payload)
				elapsed := time.Since(start)
				mu.Lock()
				if err != nil || code != http.StatusOK {
					errCount++
				} else {
					latencies = append(latencies, elapsed)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("no successful requests, errors=%d", errCount)}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	rps := float64(len(latencies)) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f p50=%s p95=%s errors=%d",
		rps, percentile(latencies, 50), percentile(latencies, 95), errCount)}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, strings.ToLower(m[1]))
	}
	return tables, nil
}
