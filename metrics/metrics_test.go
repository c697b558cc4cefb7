package metrics

import "testing"

func TestRegistryGetOrRegister(t *testing.T) {
	r := NewRegistry()
	g := &StandardGauge{}
	if err := r.Register("pool/size", g); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := r.Register("pool/size", &StandardGauge{}); err != ErrDuplicateMetric {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if have := GetOrRegisterGauge("pool/size", r); have != g {
		t.Fatalf("GetOrRegisterGauge returned a fresh gauge")
	}
	r.Unregister("pool/size")
	if r.Get("pool/size") != nil {
		t.Fatalf("metric survived unregister")
	}
}

func TestRegistryEachOrdered(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		r.Register(name, &StandardCounter{})
	}
	var names []string
	r.Each(func(name string, _ interface{}) { names = append(names, name) })
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Fatalf("unexpected iteration order: %v", names)
	}
}

func TestDisabledMetricsAreStubs(t *testing.T) {
	if Enabled {
		t.Skip("metrics enabled")
	}
	if _, ok := NewMeter().(NilMeter); !ok {
		t.Fatalf("expected nil meter while disabled")
	}
	m := &StandardMeter{}
	m.Mark(5)
	if m.Count() != 5 {
		t.Fatalf("meter count: have %d, want 5", m.Count())
	}
}

func TestRegistryDropsDisabledStubs(t *testing.T) {
	enabled := Enabled
	defer func() { Enabled = enabled }()

	r := NewRegistry()
	Enabled = false
	if _, ok := GetOrRegisterMeter("sweep/passes", r).(NilMeter); !ok {
		t.Fatalf("expected nil meter while disabled")
	}
	if r.Get("sweep/passes") != nil {
		t.Fatalf("disabled stub was registered")
	}
	Enabled = true
	m, ok := GetOrRegisterMeter("sweep/passes", r).(*StandardMeter)
	if !ok {
		t.Fatalf("expected standard meter once enabled")
	}
	if r.Get("sweep/passes") != m {
		t.Fatalf("enabled meter was not registered")
	}
}
