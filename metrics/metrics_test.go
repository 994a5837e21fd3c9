package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	var m Metrics = Noop{}
	m.IncFragmentsUploaded()
	m.IncUploadRetries()
	m.IncComposes(ComposeFinal)
	m.AddBytesTransferred(10)
	m.ObserveTransfer(StatusSucceeded, time.Second)
}

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewProm("blobxfer", reg)
	require.NoError(t, err)

	m.IncFragmentsUploaded()
	m.IncFragmentsUploaded()
	m.IncUploadRetries()
	m.IncComposes(ComposeIntermediate)
	m.IncComposes(ComposeFinal)
	m.IncComposes(ComposeFinal)
	m.AddBytesTransferred(4096)
	m.ObserveTransfer(StatusSucceeded, 3*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fragmentsUploaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.composes.WithLabelValues(ComposeIntermediate)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.composes.WithLabelValues(ComposeFinal)))
	assert.Equal(t, 4096.0, testutil.ToFloat64(m.bytesTransferred))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transfers.WithLabelValues(StatusSucceeded)))

	count, err := testutil.GatherAndCount(reg, "blobxfer_transfer_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewProm_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewProm("blobxfer", reg)
	require.NoError(t, err)

	_, err = NewProm("blobxfer", reg)
	assert.Error(t, err)
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewProm("blobxfer", reg)
	require.NoError(t, err)
	m.IncFragmentsUploaded()

	srv := httptest.NewServer(HandlerFor(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "blobxfer_fragments_uploaded_total 1")
}
