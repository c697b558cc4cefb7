// Package prometheus exposes a metrics registry in the Prometheus text format.
package prometheus

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/tos-network/holdpool/log"
	"github.com/tos-network/holdpool/metrics"
)

// Handler returns an HTTP handler which dumps the metrics of the given registry
// in Prometheus text exposition format.
func Handler(reg metrics.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := Write(&buf, reg); err != nil {
			log.Warn("Failed to render metrics", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		w.Write(buf.Bytes())
	})
}

// Write renders every metric of the registry, in name order, to buf.
func Write(buf *bytes.Buffer, reg metrics.Registry) error {
	var err error
	reg.Each(func(name string, i interface{}) {
		if err != nil {
			return
		}
		family := collect(name, i)
		if family == nil {
			return
		}
		if _, werr := expfmt.MetricFamilyToText(buf, family); werr != nil {
			err = fmt.Errorf("metric %s: %w", name, werr)
		}
	})
	return err
}

func collect(name string, i interface{}) *dto.MetricFamily {
	name = mutateKey(name)
	switch m := i.(type) {
	case metrics.Counter:
		return family(name, dto.MetricType_COUNTER, &dto.Metric{
			Counter: &dto.Counter{Value: proto.Float64(float64(m.Count()))},
		})
	case metrics.Gauge:
		return family(name, dto.MetricType_GAUGE, &dto.Metric{
			Gauge: &dto.Gauge{Value: proto.Float64(float64(m.Value()))},
		})
	case metrics.Meter:
		return family(name, dto.MetricType_COUNTER, &dto.Metric{
			Counter: &dto.Counter{Value: proto.Float64(float64(m.Count()))},
		})
	}
	return nil
}

func family(name string, typ dto.MetricType, metric *dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Type:   typ.Enum(),
		Metric: []*dto.Metric{metric},
	}
}

func mutateKey(key string) string {
	return strings.Replace(strings.Replace(key, "/", "_", -1), "-", "_", -1)
}
