package metrics

import (
	"errors"
	"sort"
	"sync"
)

// ErrDuplicateMetric is returned by Registry.Register when a metric already
// exists under the given name.
var ErrDuplicateMetric = errors.New("duplicate metric")

// A Registry holds references to a set of metrics by name and can iterate
// over them, calling callback functions provided by the user.
type Registry interface {
	// Each calls the given function for each registered metric, in name order.
	Each(func(string, interface{}))

	// Get the metric by the given name or nil if none is registered.
	Get(string) interface{}

	// GetOrRegister gets an existing metric or registers the given one.
	// The interface can be the metric to register if not found in registry,
	// or a function returning the metric for lazy instantiation.
	GetOrRegister(string, interface{}) interface{}

	// Register the given metric under the given name.
	Register(string, interface{}) error

	// Unregister the metric with the given name.
	Unregister(string)
}

// StandardRegistry is the standard implementation of a Registry: a
// mutex-protected map of names to metrics.
type StandardRegistry struct {
	metrics map[string]interface{}
	mutex   sync.Mutex
}

// NewRegistry creates a new registry.
func NewRegistry() Registry {
	return &StandardRegistry{metrics: make(map[string]interface{})}
}

func (r *StandardRegistry) Each(f func(string, interface{})) {
	r.mutex.Lock()
	names := make([]string, 0, len(r.metrics))
	snapshot := make(map[string]interface{}, len(r.metrics))
	for name, i := range r.metrics {
		names = append(names, name)
		snapshot[name] = i
	}
	r.mutex.Unlock()

	sort.Strings(names)
	for _, name := range names {
		f(name, snapshot[name])
	}
}

func (r *StandardRegistry) Get(name string) interface{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.metrics[name]
}

func (r *StandardRegistry) GetOrRegister(name string, i interface{}) interface{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if metric, ok := r.metrics[name]; ok {
		return metric
	}
	if fn, ok := i.(func() interface{}); ok {
		i = fn()
	}
	r.register(name, i)
	return i
}

func (r *StandardRegistry) Register(name string, i interface{}) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.metrics[name]; ok {
		return ErrDuplicateMetric
	}
	r.register(name, i)
	return nil
}

func (r *StandardRegistry) Unregister(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.metrics, name)
}

// register stores live metrics only. Stubs handed out while metrics were
// disabled are not kept, so a later lookup with metrics enabled gets a real one.
func (r *StandardRegistry) register(name string, i interface{}) {
	switch i.(type) {
	case NilCounter, NilGauge, NilMeter:
		return
	case Counter, Gauge, Meter:
		r.metrics[name] = i
	}
}

// DefaultRegistry is the registry the NewRegistered* helpers fall back to.
var DefaultRegistry = NewRegistry()

// GetOrRegisterGauge returns an existing Gauge or constructs and registers a
// new StandardGauge.
func GetOrRegisterGauge(name string, r Registry) Gauge {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, func() interface{} { return NewGauge() }).(Gauge)
}

// GetOrRegisterMeter returns an existing Meter or constructs and registers a
// new StandardMeter.
func GetOrRegisterMeter(name string, r Registry) Meter {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, func() interface{} { return NewMeter() }).(Meter)
}

// GetOrRegisterCounter returns an existing Counter or constructs and registers
// a new StandardCounter.
func GetOrRegisterCounter(name string, r Registry) Counter {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, func() interface{} { return NewCounter() }).(Counter)
}
