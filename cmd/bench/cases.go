// README: Bench cases; seeding via Postgres, API flow checks, the concurrent-accept race and the Redis mirror.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const benchClientID = "bench-client"

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

type callView struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	DriverID        *string    `json:"driver_id"`
	VehiclePosition *point     `json:"vehicle_position"`
	CompletedAt     *time.Time `json:"completed_at"`
}

type point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
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
			if err := db.Ping(ctx); err == nil {
				r.db = db
			} else {
				db.Close()
			}
		}
	}
	if r.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err == nil {
			r.redis = client
		} else {
			_ = client.Close()
		}
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
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

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: seed client and drivers", Run: seedDirectory},
		{Name: "HTTP: health", Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			code, _, err := r.do(ctx, http.MethodGet, "/health", nil)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			if code != http.StatusOK {
				return Result{Status: "FAIL", Note: fmt.Sprintf("status %d", code)}
			}
			return Result{Status: "PASS", Latency: time.Since(start)}
		}},
		{Name: "Call: create is pending without driver", Run: func(ctx context.Context, r *Runner) Result {
			c, err := r.createCall(ctx)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			if c.Status != "pending" || c.DriverID != nil {
				return Result{Status: "FAIL", Note: fmt.Sprintf("status=%s driver=%v", c.Status, c.DriverID)}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Call: concurrent accept has exactly one winner", Run: acceptRace},
		{Name: "Call: en_route, completed, then cancel rejected", Run: statusFlow},
		{Name: "Call: position update on pending call", Run: pendingPosition},
		{Name: "Redis: live position mirrored", Run: redisMirror},
	}
}

type seedStmt struct {
	q    string
	args []any
}

func seedDirectory(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: "SKIP", Note: "db not reachable; directory must already contain bench ids"}
	}
	stmts := []seedStmt{
		{`INSERT INTO clients (id, name) VALUES ($1, 'bench') ON CONFLICT DO NOTHING`, []any{benchClientID}},
	}
	for i := 0; i < r.cfg.Drivers; i++ {
		id := driverID(i)
		stmts = append(stmts, seedStmt{`INSERT INTO drivers (id, name) VALUES ($1, 'bench') ON CONFLICT DO NOTHING`, []any{id}})
		// odd drivers have no ambulance, so the race also covers vehicle-less acceptance
		if i%2 == 0 {
			stmts = append(stmts, seedStmt{`INSERT INTO ambulances (id, plate, driver_id) VALUES ($1, $1, $2) ON CONFLICT DO NOTHING`, []any{"amb-" + id, id}})
		}
	}
	for _, st := range stmts {
		if _, err := r.db.Exec(ctx, st.q, st.args...); err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
	}
	return Result{Status: "PASS", Note: fmt.Sprintf("%d drivers", r.cfg.Drivers)}
}

func acceptRace(ctx context.Context, r *Runner) Result {
	var total time.Duration
	for round := 0; round < r.cfg.Rounds; round++ {
		c, err := r.createCall(ctx)
		if err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}

		codes := make(chan int, r.cfg.Drivers)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < r.cfg.Drivers; i++ {
			wg.Add(1)
			go func(did string) {
				defer wg.Done()
				<-start
				code, _, err := r.do(ctx, http.MethodPut, fmt.Sprintf("/api/calls/%s/accept?driver_id=%s", c.ID, did), nil)
				if err != nil {
					code = -1
				}
				codes <- code
			}(driverID(i))
		}
		began := time.Now()
		close(start)
		wg.Wait()
		total += time.Since(began)
		close(codes)

		won, lost := 0, 0
		for code := range codes {
			switch code {
			case http.StatusOK:
				won++
			case http.StatusConflict:
				lost++
			default:
				return Result{Status: "FAIL", Note: fmt.Sprintf("round %d: unexpected status %d", round, code)}
			}
		}
		if won != 1 || lost != r.cfg.Drivers-1 {
			return Result{Status: "FAIL", Note: fmt.Sprintf("round %d: %d winners, %d conflicts", round, won, lost)}
		}
	}
	return Result{
		Status:  "PASS",
		Latency: total / time.Duration(max(r.cfg.Rounds, 1)),
		Note:    fmt.Sprintf("%d rounds x %d drivers", r.cfg.Rounds, r.cfg.Drivers),
	}
}

func statusFlow(ctx context.Context, r *Runner) Result {
	c, err := r.createCall(ctx)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	steps := []struct {
		path string
		want int
	}{
		{fmt.Sprintf("/api/calls/%s/status?status=completed", c.ID), http.StatusUnprocessableEntity},
		{fmt.Sprintf("/api/calls/%s/accept?driver_id=%s", c.ID, driverID(0)), http.StatusOK},
		{fmt.Sprintf("/api/calls/%s/status?status=en_route", c.ID), http.StatusOK},
		{fmt.Sprintf("/api/calls/%s/status?status=pending", c.ID), http.StatusUnprocessableEntity},
		{fmt.Sprintf("/api/calls/%s/status?status=completed", c.ID), http.StatusOK},
		{fmt.Sprintf("/api/calls/%s/status?status=cancelled", c.ID), http.StatusUnprocessableEntity},
		{fmt.Sprintf("/api/calls/%s/status?status=Completed", c.ID), http.StatusBadRequest},
	}
	for _, st := range steps {
		code, _, err := r.do(ctx, http.MethodPut, st.path, nil)
		if err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
		if code != st.want {
			return Result{Status: "FAIL", Note: fmt.Sprintf("%s: got %d want %d", st.path, code, st.want)}
		}
	}
	var got callView
	if err := r.getJSON(ctx, "/api/calls/"+c.ID, &got); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if got.Status != "completed" || got.CompletedAt == nil {
		return Result{Status: "FAIL", Note: fmt.Sprintf("final status=%s completed_at=%v", got.Status, got.CompletedAt)}
	}
	return Result{Status: "PASS"}
}

func pendingPosition(ctx context.Context, r *Runner) Result {
	c, err := r.createCall(ctx)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	code, body, err := r.do(ctx, http.MethodPut, "/api/calls/"+c.ID+"/vehicle-position",
		map[string]float64{"latitude": -23.55, "longitude": -46.63})
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if code != http.StatusOK {
		return Result{Status: "FAIL", Note: fmt.Sprintf("status %d", code)}
	}
	var got callView
	if err := json.Unmarshal(body, &got); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if got.Status != "pending" || got.VehiclePosition == nil {
		return Result{Status: "FAIL", Note: "position update changed status or was not stored"}
	}
	return Result{Status: "PASS"}
}

func redisMirror(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: "SKIP", Note: "redis not reachable"}
	}
	c, err := r.createCall(ctx)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if code, _, err := r.do(ctx, http.MethodPut, fmt.Sprintf("/api/calls/%s/accept?driver_id=%s", c.ID, driverID(0)), nil); err != nil || code != http.StatusOK {
		return Result{Status: "FAIL", Note: fmt.Sprintf("accept: status %d err %v", code, err)}
	}
	if code, _, err := r.do(ctx, http.MethodPut, "/api/calls/"+c.ID+"/vehicle-position",
		map[string]float64{"latitude": -23.56, "longitude": -46.64}); err != nil || code != http.StatusOK {
		return Result{Status: "FAIL", Note: fmt.Sprintf("position: status %d err %v", code, err)}
	}
	vals, err := r.redis.HGetAll(ctx, "tracking:call:"+c.ID).Result()
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if len(vals) == 0 {
		return Result{Status: "FAIL", Note: "no mirrored position"}
	}
	return Result{Status: "PASS"}
}

func (r *Runner) createCall(ctx context.Context) (*callView, error) {
	code, body, err := r.do(ctx, http.MethodPost, "/api/calls/emergency", map[string]any{
		"client_id":   benchClientID,
		"latitude":    -23.5505,
		"longitude":   -46.6333,
		"priority":    "alta",
		"description": "bench",
	})
	if err != nil {
		return nil, err
	}
	if code != http.StatusCreated {
		return nil, fmt.Errorf("create call: status %d: %s", code, body)
	}
	var c callView
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Runner) getJSON(ctx context.Context, path string, out any) error {
	code, body, err := r.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, code)
	}
	return json.Unmarshal(body, out)
}

func (r *Runner) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func driverID(i int) string {
	return fmt.Sprintf("bench-driver-%d", i)
}
