package module

import "sync"

// process wide port registry filled by the API root while mounting
var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register stores the port set of module name, replacing any earlier one
func Register(name string, ports any) {
	mu.Lock()
	defer mu.Unlock()
	reg[name] = ports
}

// PortsAs fetches the port set registered under name as T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	v, ok := reg[name]
	mu.RUnlock()
	out, ok2 := v.(T)
	return out, ok && ok2
}

// Reset empties the registry; tests call it through t.Cleanup
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	reg = map[string]any{}
}
