package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a provider failure; retrieval may still work from cache.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentEmbedding = "embedding"
	ComponentLLM       = "llm"
)

const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	providers map[string]ProviderChecker
	timeout   time.Duration
}

// New creates a Service. embedding and llm can be nil.
func New(db DBPinger, embedding, llm ProviderChecker) *Service {
	providers := make(map[string]ProviderChecker, 2)
	if embedding != nil {
		providers[ComponentEmbedding] = embedding
	}
	if llm != nil {
		providers[ComponentLLM] = llm
	}
	return &Service{db: db, providers: providers, timeout: defaultCheckTimeout}
}

// Check runs all component checks concurrently, each under its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.providers)+1)
	)
	record := func(name string, err error) {
		res := CheckOK
		if err != nil {
			res = CheckError
		}
		mu.Lock()
		checks[name] = res
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		record(ComponentDatabase, s.db.Ping(cctx))
		return nil
	})
	for name, p := range s.providers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			record(name, p.HealthCheck(cctx))
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	switch {
	case checks[ComponentDatabase] == CheckError:
		status = Unhealthy
	default:
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{Status: status, Checks: checks}
}
