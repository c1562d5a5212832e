package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/genfan/core"
)

// MockInvoker is a lightweight in-memory invoker useful for tests and
// examples. Responses and failures are registered per instance id; an
// optional delay simulates remote latency while remaining cancellable.
type MockInvoker struct {
	mu        sync.RWMutex
	responses map[string]core.InvocationResult
	failures  map[string]error
	delay     time.Duration
}

// NewMockInvoker constructs an empty mock invoker.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		responses: make(map[string]core.InvocationResult),
		failures:  make(map[string]error),
	}
}

// AddResponse registers a deterministic canned result for an instance id.
func (m *MockInvoker) AddResponse(instanceID string, data []byte, mime string) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[instanceID] = core.InvocationResult{Data: data, MIME: mime}
	return m
}

// AddResponseWithCost registers a canned result reporting a cost.
func (m *MockInvoker) AddResponseWithCost(instanceID string, data []byte, mime string, costMicrocents int64) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[instanceID] = core.InvocationResult{Data: data, MIME: mime, CostMicrocents: &costMicrocents}
	return m
}

// FailInstance makes the given instance id settle with an error.
func (m *MockInvoker) FailInstance(instanceID string, err error) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[instanceID] = err
	return m
}

// WithDelay simulates remote latency before every settlement.
func (m *MockInvoker) WithDelay(d time.Duration) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Invoke implements core.Invoker.
func (m *MockInvoker) Invoke(ctx context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
	m.mu.RLock()
	delay := m.delay
	failure, failed := m.failures[inst.ID]
	result, ok := m.responses[inst.ID]
	m.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return core.InvocationResult{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return core.InvocationResult{}, err
	}

	if failed {
		return core.InvocationResult{}, failure
	}
	if !ok {
		return core.InvocationResult{}, fmt.Errorf("no canned response for instance %s", inst.ID)
	}
	return result, nil
}

// ParamString reads a string parameter from the instance, with fallback.
func ParamString(inst core.ModelInstance, key, fallback string) string {
	if v, ok := inst.Params[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
