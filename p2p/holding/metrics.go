package holding

import "github.com/tos-network/holdpool/metrics"

// poolMeters are the per-pool instruments, registered under the pool's name.
type poolMeters struct {
	size   metrics.Gauge
	add    metrics.Meter
	update metrics.Meter
	remove metrics.Meter
	clean  metrics.Meter
	reject metrics.Meter
}

func newPoolMeters(name string) *poolMeters {
	if name == "" {
		return &poolMeters{
			size:   metrics.NilGauge{},
			add:    metrics.NilMeter{},
			update: metrics.NilMeter{},
			remove: metrics.NilMeter{},
			clean:  metrics.NilMeter{},
			reject: metrics.NilMeter{},
		}
	}
	return &poolMeters{
		size:   metrics.GetOrRegisterGauge(name+"/size", nil),
		add:    metrics.GetOrRegisterMeter(name+"/add", nil),
		update: metrics.GetOrRegisterMeter(name+"/update", nil),
		remove: metrics.GetOrRegisterMeter(name+"/remove", nil),
		clean:  metrics.GetOrRegisterMeter(name+"/clean", nil),
		reject: metrics.GetOrRegisterMeter(name+"/reject", nil),
	}
}
