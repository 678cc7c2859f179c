// Command ephemeral-probe checks the health and call-budget posture of a
// running ephemeral-state backend.
//
// It connects to Redis (flag, REDIS_ADDR env, or an embedded miniredis
// for dry runs), performs a liveness round trip plus a write/read probe,
// and prints the budget stats as JSON.
//
//	ephemeral-probe -redis-addr localhost:6379 -config ephemeral.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notably-app/ephemeral"
)

type report struct {
	RunID             string `json:"run_id"`
	Healthy           bool   `json:"healthy"`
	ProbeRoundTrip    bool   `json:"probe_round_trip"`
	RequestsToday     int    `json:"requests_today"`
	RemainingRequests int    `json:"remaining_requests"`
	LimitReached      bool   `json:"limit_reached"`
}

func main() {
	var (
		redisAddr  = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		configPath = flag.String("config", "", "optional YAML config file")
		verbose    = flag.Bool("v", false, "log with a development logger")
	)
	flag.Parse()

	log := zap.NewNop()
	if *verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
	}

	cfg := ephemeral.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = ephemeral.LoadConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	engine, err := ephemeral.New().
		WithRedis(rdb).
		WithConfig(cfg).
		WithLogger(log).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runID := uuid.NewString()
	r := report{
		RunID:   runID,
		Healthy: engine.HealthCheck(ctx),
	}

	// A full write/read round trip through the budgeted path.
	probeKey := "probe:" + runID
	if engine.Cache().Set(ctx, probeKey, time.Now().Unix(), 30*time.Second) {
		if _, st := engine.Cache().Get(ctx, probeKey); st.Found() {
			r.ProbeRoundTrip = true
		}
		engine.Cache().Delete(ctx, probeKey)
	}

	stats := engine.CacheStats()
	r.RequestsToday = stats.RequestsToday
	r.RemainingRequests = stats.RemainingRequests
	r.LimitReached = stats.LimitReached

	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if !r.Healthy || !r.ProbeRoundTrip {
		os.Exit(1)
	}
}
