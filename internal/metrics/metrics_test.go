package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveOperation("deploy", time.Now(), nil)
	m.ObserveOperation("deploy", time.Now(), errors.New("boom"))
	m.ObserveOperation("deploy", time.Now(), errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("deploy", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("deploy", "failure")))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics("test")
	m.RetryAttempts.WithLabelValues("probe", "failure").Inc()

	path := filepath.Join(t.TempDir(), "deployer.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `test_retry_attempts_total{policy="probe",result="failure"} 1`)

	assert.NoError(t, m.WriteTextfile(""))
}
