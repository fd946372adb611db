package cli

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "all succeed",
			args: []string{"run", "--tasks", "20", "--workers", "4", "--task-duration", "0"},
			want: "submitted=20 completed=20 failed=0 canceled=0",
		},
		{
			name: "every fifth fails",
			args: []string{"run", "--tasks", "20", "--workers", "2", "--queue", "5", "--fail-every", "5"},
			want: "submitted=20 completed=16 failed=4 canceled=0",
		},
		{
			name: "serial",
			args: []string{"run", "--tasks", "10", "--workers", "4", "--serial", "--fail-every", "2"},
			want: "submitted=10 completed=5 failed=5 canceled=0",
		},
		{
			name: "no tasks",
			args: []string{"run", "--tasks", "0"},
			want: "submitted=0 completed=0 failed=0 canceled=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestRunCommand_NamedPool(t *testing.T) {
	content := `
pools:
  io:
    maxWorkers: 2
    maxQueueSize: 4
`
	out, err := execute(t, content, "run", "--pool", "io", "--tasks", "12", "--task-duration", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "submitted=12 completed=12")

	_, err = execute(t, content, "run", "--pool", "missing")
	require.Error(t, err)

	_, err = execute(t, content, "run", "--pool", "io", "--workers", "0")
	require.Error(t, err)
}

func TestRunCommand_Timeout(t *testing.T) {
	out, err := execute(t, "",
		"run", "--tasks", "50", "--workers", "1", "--task-duration", "1s", "--timeout", "50ms")
	require.NoError(t, err)
	assert.Contains(t, out, "completed=0")
	assert.NotContains(t, out, "canceled=0 ")
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"})
	reg.MustRegister(counter)
	counter.Inc()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	addr, stop, err := serveMetrics("127.0.0.1:0", reg, logger)
	require.NoError(t, err)
	defer stop()

	client := &http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	resp, err := client.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "probe_total 1"), string(body))
}

func TestRunCommand_MetricsListen(t *testing.T) {
	out, err := execute(t, "", "run", "--tasks", "5", "--task-duration", "0", "--metrics-listen", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "submitted=5 completed=5")
}
