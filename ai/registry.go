package ai

import "sync"

// ServiceRegistry holds named inference services.
// Models reference services by name via Model.Service; the registry joins
// persisted model configurations back to runnable services.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]InferenceService
}

// NewServiceRegistry creates a registry pre-populated with the given services.
func NewServiceRegistry(services ...InferenceService) *ServiceRegistry {
	r := &ServiceRegistry{
		services: make(map[string]InferenceService, len(services)),
	}
	for _, s := range services {
		r.services[s.Name()] = s
	}
	return r
}

// Register adds a service, replacing any existing service with the same name.
func (r *ServiceRegistry) Register(s InferenceService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[s.Name()] = s
}

// Service returns the service registered under the given name.
func (r *ServiceRegistry) Service(name string) (InferenceService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[name]
	return s, ok
}
