// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

//go:embed activities.json
var defaultRegistryJSON []byte

// Default returns the registry of the assessment activities.
func Default() (*ActivityRegistry, error) {
	return Parse(defaultRegistryJSON)
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("registry: decode: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks that task types are unique and timeouts parse.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Activities))
	for _, a := range r.Activities {
		if a.TaskType == "" {
			return fmt.Errorf("registry: activity %q has no task type", a.ID)
		}
		if seen[a.TaskType] {
			return fmt.Errorf("registry: duplicate task type %q", a.TaskType)
		}
		seen[a.TaskType] = true
		if _, err := time.ParseDuration(a.Timeout); err != nil {
			return fmt.Errorf("registry: activity %q timeout: %w", a.ID, err)
		}
	}
	return nil
}

// Find returns the activity implementing taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// TimeoutOf returns the registered timeout for taskType, or fallback.
func (r *ActivityRegistry) TimeoutOf(taskType string, fallback time.Duration) time.Duration {
	a, ok := r.Find(taskType)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return fallback
	}
	return d
}
