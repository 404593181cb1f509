// Command identity-loadtest measures login and token verification
// throughput of the engine against Redis (or an embedded miniredis).
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/identity"
	"github.com/MrEthical07/identity/credstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "L0ad-test-pass"

func main() {
	var (
		accounts    = flag.Int("accounts", 200, "number of accounts to register")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		logins      = flag.Int("logins", 2000, "login operations")
		verifies    = flag.Int("verifies", 200000, "verify-token operations")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		bcryptCost  = flag.Int("bcrypt-cost", 10, "bcrypt cost for seeded accounts")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *logins <= 0 || *verifies <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, logins and verifies must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: *concurrency})
	defer client.Close()

	cfg := identity.DefaultConfig()
	cfg.Token.Secret = []byte("identity-loadtest-secret-32bytes")
	cfg.Password.BcryptCost = *bcryptCost
	cfg.RateLimit.Requests = 1 << 30
	cfg.Session.Prefix = fmt.Sprintf("loadtest:%d:session", time.Now().UnixNano())
	cfg.RateLimit.Prefix = fmt.Sprintf("loadtest:%d:rate", time.Now().UnixNano())

	engine, err := identity.New().
		WithConfig(cfg).
		WithRedis(client).
		WithCredentialStore(memory.New()).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	emails := make([]string, *accounts)
	fmt.Printf("registering %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := range emails {
		emails[i] = fmt.Sprintf("load-%d@example.com", i)
		if _, err := engine.Register(ctx, identity.RegisterRequest{
			Email: emails[i], Password: loadPassword, FirstName: "Load", LastName: "Test",
		}); err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

	var (
		tokensMu sync.Mutex
		tokens   = make([]string, 0, *logins)
	)
	loginStats := runPhase(*logins, *concurrency, func(r *rand.Rand, _ int) error {
		res, err := engine.Login(ctx, emails[r.Intn(len(emails))], loadPassword)
		if err != nil {
			return err
		}
		tokensMu.Lock()
		tokens = append(tokens, res.Token)
		tokensMu.Unlock()
		return nil
	})
	if len(tokens) == 0 {
		fmt.Fprintln(os.Stderr, "no successful logins; skipping verify phase")
		os.Exit(1)
	}

	verifyStats := runPhase(*verifies, *concurrency, func(r *rand.Rand, _ int) error {
		_, err := engine.VerifyToken(ctx, tokens[r.Intn(len(tokens))])
		return err
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("verify", verifyStats)
	snap := engine.MetricsSnapshot()
	fmt.Printf("engine verify latency: %s\n", formatHistogram(snap.Histograms[identity.MetricVerifyLatency]))
	fmt.Printf("token ttl: %s\n", engine.TokenTTL())
}

// runPhase runs op ops times across concurrency workers.
func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

var histogramLabels = [...]string{"<=5ms", "<=10ms", "<=25ms", "<=50ms", "<=100ms", "<=250ms", "<=500ms", "+Inf"}

// formatHistogram renders the engine's non-cumulative verify buckets.
func formatHistogram(buckets []uint64) string {
	if len(buckets) == 0 {
		return "disabled"
	}
	parts := make([]string, 0, len(histogramLabels))
	for i, label := range histogramLabels {
		var n uint64
		if i < len(buckets) {
			n = buckets[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%d", label, n))
	}
	return strings.Join(parts, " ")
}
