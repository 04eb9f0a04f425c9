package bus

import (
	"fmt"
	"sort"
	"sync"

	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/core/port"
)

// MemoryBus keeps the last value of every path of every service.
type MemoryBus struct {
	mu       sync.RWMutex
	services map[string]*MemorySink
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		services: map[string]*MemorySink{},
	}
}

func (b *MemoryBus) Service(svc domain.ServiceInfo) (port.Sink, error) {
	return b.service(svc)
}

func (b *MemoryBus) service(svc domain.ServiceInfo) (*MemorySink, error) {
	if svc.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if sink, ok := b.services[svc.ServiceName]; ok {
		return sink, nil
	}
	sink := &MemorySink{
		info:   svc,
		values: map[string]any{},
	}
	b.services[svc.ServiceName] = sink
	return sink, nil
}

// Sink returns the sink of a registered service.
func (b *MemoryBus) Sink(serviceName string) (*MemorySink, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sink, ok := b.services[serviceName]
	return sink, ok
}

func (b *MemoryBus) ServiceNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.services))
	for name := range b.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *MemoryBus) Close() error {
	return nil
}

type MemorySink struct {
	mu     sync.RWMutex
	info   domain.ServiceInfo
	values map[string]any
}

func (s *MemorySink) SetPath(path string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[path] = value
}

func (s *MemorySink) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[path]
	return v, ok
}

// Snapshot returns a copy of every path value.
func (s *MemorySink) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := make(map[string]any, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	return values
}

func (s *MemorySink) Info() domain.ServiceInfo {
	return s.info
}

// ensure interface compliance
var _ port.Bus = (*MemoryBus)(nil)
var _ port.Sink = (*MemorySink)(nil)
