package prometheus

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/holdpool/metrics"
)

func TestWrite(t *testing.T) {
	reg := metrics.NewRegistry()
	size := &metrics.StandardGauge{}
	size.Update(12)
	added := &metrics.StandardCounter{}
	added.Inc(40)
	reg.Register("p2p/orphans/size", size)
	reg.Register("p2p/orphans/add-total", added)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, reg))

	out := buf.String()
	require.Contains(t, out, "# TYPE p2p_orphans_size gauge")
	require.Contains(t, out, "p2p_orphans_size 12")
	require.Contains(t, out, "# TYPE p2p_orphans_add_total counter")
	require.Contains(t, out, "p2p_orphans_add_total 40")
	require.Less(t, strings.Index(out, "add_total"), strings.Index(out, "orphans_size"))
}

func TestHandler(t *testing.T) {
	reg := metrics.NewRegistry()
	g := &metrics.StandardGauge{}
	g.Update(3)
	reg.Register("pool/size", g)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/debug/metrics/prometheus", nil))

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "pool_size 3")
}
