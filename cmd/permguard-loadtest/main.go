package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/permguard"
	"github.com/MrEthical07/permguard/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	permissions = []string{"doc.read", "doc.write", "doc.delete", "admin.panel"}
	roles       = map[string][]string{
		"viewer": {"doc.read"},
		"editor": {"doc.read", "doc.write"},
		"admin":  {"doc.read", "doc.write", "doc.delete", "admin.panel"},
	}
	roleNames = []string{"viewer", "editor", "admin"}
)

func main() {
	var (
		users       = flag.Int("users", 10000, "number of callers to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "pg", "flag store key prefix")
		dumpMetrics = flag.Bool("metrics", false, "print Prometheus exposition after the run")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d callers...\n", *users)
	startSeed := time.Now()
	tokens := make([]string, *users)
	for i := 0; i < *users; i++ {
		uid := userID(i)
		if err := engine.AssignRoles(ctx, "0", uid, roleNames[i%len(roleNames)]); err != nil {
			fmt.Fprintf(os.Stderr, "assign failed: %v\n", err)
			os.Exit(1)
		}
		tok, err := engine.IssueAccess(ctx, "0", uid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = tok
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	strictStats := runPhase(*ops, *concurrency, *users, func(r *mrand.Rand, idx int) (bool, error) {
		d, err := engine.Check(ctx, "0", userID(idx), permissions[r.Intn(len(permissions))])
		return d.Allowed, err
	})
	maskStats := runPhase(*ops, *concurrency, *users, func(r *mrand.Rand, idx int) (bool, error) {
		claims, err := engine.ParseAccess(tokens[idx])
		if err != nil {
			return false, err
		}
		bits, err := claims.Bits()
		if err != nil {
			return false, err
		}
		required, err := engine.Table().Resolve(permissions[r.Intn(len(permissions))])
		if err != nil {
			return false, err
		}
		return bits&required == required, nil
	})

	fmt.Println("---- results ----")
	printStats("check-strict", strictStats)
	printStats("check-mask", maskStats)

	if *dumpMetrics {
		fmt.Println("---- metrics ----")
		fmt.Print(prometheus.NewExporter(engine).Render())
	}
}

func buildEngine(client redis.UniversalClient, prefix string) (*permguard.Engine, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	cfg := permguard.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.JWT.AccessTTL = time.Hour
	cfg.Store.RedisPrefix = prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return permguard.New().
		WithConfig(cfg).
		WithRedis(client).
		WithPermissions(permissions...).
		WithRoles(roles).
		WithLogger(logger.WithField("component", "loadtest")).
		Build()
}

func userID(i int) string {
	return fmt.Sprintf("user-%d", i)
}

func runPhase(ops, concurrency, users int, op func(r *mrand.Rand, idx int) (bool, error)) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		denied    int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(users)
				t0 := time.Now()
				allowed, err := op(r, idx)
				d := time.Since(t0)
				switch {
				case err != nil:
					atomic.AddInt64(&failures, 1)
				case !allowed:
					atomic.AddInt64(&denied, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	stats := computeStats(time.Since(start), latencies, failures)
	stats.denied = denied
	return stats
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	denied   int64
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d denied=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.denied,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
