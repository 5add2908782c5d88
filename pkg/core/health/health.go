// Package health aggregates discovery checks into a single report: one check
// for the name service and one per control task bound under the task context.
package health

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/msto63/taskdir/pkg/core/discovery"
)

// Status represents the health status of a checked target
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string                 `json:"name" yaml:"name"`
	Status    Status                 `json:"status" yaml:"status"`
	Message   string                 `json:"message,omitempty" yaml:"message,omitempty"`
	Duration  time.Duration          `json:"duration" yaml:"duration"`
	Timestamp time.Time              `json:"timestamp" yaml:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// Checker is an interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

type namedCheck struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewChecker creates a named checker from a function
func NewChecker(name string, fn func(ctx context.Context) CheckResult) Checker {
	return &namedCheck{name: name, fn: fn}
}

func (c *namedCheck) Name() string {
	return c.name
}

func (c *namedCheck) Check(ctx context.Context) CheckResult {
	return c.fn(ctx)
}

// Registry runs a set of checkers concurrently
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	service  string
	version  string
	startAt  time.Time
}

// NewRegistry creates a new health check registry
func NewRegistry(service, version string) *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
		service:  service,
		version:  version,
		startAt:  time.Now(),
	}
}

// Register adds a checker, replacing one with the same name
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// RegisterFunc adds a check function to the registry
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context) CheckResult) {
	r.Register(NewChecker(name, fn))
}

// Unregister removes a checker from the registry
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// Check runs all checks and returns the overall status. Any unhealthy check
// makes the report unhealthy; degraded checks degrade it. Results are
// ordered by name.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := &Report{
		Service:   r.service,
		Version:   r.version,
		Uptime:    time.Since(r.startAt),
		Timestamp: time.Now(),
		Checks:    make([]CheckResult, 0, len(r.checkers)),
	}

	var wg sync.WaitGroup
	results := make(chan CheckResult, len(r.checkers))

	for _, checker := range r.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			start := time.Now()
			result := c.Check(ctx)
			result.Duration = time.Since(start)
			result.Timestamp = time.Now()
			if result.Name == "" {
				result.Name = c.Name()
			}
			results <- result
		}(checker)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	overallStatus := StatusHealthy
	for result := range results {
		report.Checks = append(report.Checks, result)
		switch result.Status {
		case StatusUnhealthy:
			overallStatus = StatusUnhealthy
		case StatusDegraded, StatusUnknown:
			if overallStatus != StatusUnhealthy {
				overallStatus = StatusDegraded
			}
		}
	}

	slices.SortFunc(report.Checks, func(a, b CheckResult) int {
		return cmp.Compare(a.Name, b.Name)
	})
	report.Status = overallStatus
	return report
}

// CheckWithTimeout runs all health checks with a timeout
func (r *Registry) CheckWithTimeout(timeout time.Duration) *Report {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.Check(ctx)
}

// Report represents the overall health report
type Report struct {
	Service   string        `json:"service" yaml:"service"`
	Version   string        `json:"version" yaml:"version"`
	Status    Status        `json:"status" yaml:"status"`
	Uptime    time.Duration `json:"uptime" yaml:"uptime"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Checks    []CheckResult `json:"checks" yaml:"checks"`
}

// String returns a string representation of the report
func (r *Report) String() string {
	return fmt.Sprintf("Service: %s, Status: %s, Uptime: %v, Checks: %d",
		r.Service, r.Status, r.Uptime, len(r.Checks))
}

// NameServiceCheck reports whether the facade holds a root context and the
// task context can be enumerated.
func NameServiceCheck(a *discovery.Access) Checker {
	return NewChecker("nameservice", func(ctx context.Context) CheckResult {
		result := CheckResult{Name: "nameservice", Details: map[string]interface{}{}}

		root := a.RegistryRoot()
		if root == nil {
			result.Status = StatusUnhealthy
			result.Message = discovery.ErrNotInitialized.Error()
			return result
		}
		result.Details["endpoint"] = root.Ref().Endpoint

		names, err := a.ListTaskNames(ctx)
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			return result
		}

		result.Status = StatusHealthy
		result.Message = fmt.Sprintf("%d task(s) under %s", len(names), a.TaskContext())
		result.Details["tasks"] = len(names)
		return result
	})
}

// TaskCheck resolves the named control task and reads its state. A task that
// is bound but not answering is unhealthy; one with the wrong type is
// degraded.
func TaskCheck(a *discovery.Access, name string) Checker {
	checkName := "task:" + name
	return NewChecker(checkName, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: checkName}

		task, err := a.FindTask(ctx, name)
		if err != nil {
			result.Message = err.Error()
			result.Status = StatusUnhealthy
			if discovery.ReasonOf(err) == discovery.ReasonWrongType {
				result.Status = StatusDegraded
			}
			return result
		}

		state, err := task.GetTaskState(ctx)
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			return result
		}

		result.Status = StatusHealthy
		result.Message = state
		result.Details = map[string]interface{}{"endpoint": task.Ref().Endpoint}
		return result
	})
}

// ForTasks builds a registry with the name service check plus one check per
// task currently bound under the task context.
func ForTasks(ctx context.Context, a *discovery.Access, service, version string) (*Registry, error) {
	r := NewRegistry(service, version)
	r.Register(NameServiceCheck(a))

	names, err := a.ListTaskNames(ctx)
	if err != nil {
		return r, err
	}
	for _, name := range names {
		r.Register(TaskCheck(a, name))
	}
	return r, nil
}
