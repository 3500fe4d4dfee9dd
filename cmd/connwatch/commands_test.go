package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cwerrors "github.com/nozo-moto/connwatch/internal/errors"
	"github.com/nozo-moto/connwatch/internal/supervisor"
	"github.com/nozo-moto/connwatch/pkg/types"
)

type stubWatcher struct {
	calls   int
	records []types.ConnectionRecord
	err     error
}

func (s *stubWatcher) Watch(context.Context) ([]types.ConnectionRecord, error) {
	s.calls++
	return s.records, s.err
}

type stubHost struct{}

func (stubHost) Snapshot(context.Context) types.HostSnapshot {
	return types.HostSnapshot{Hostname: "testhost"}
}

func testDeps(w *stubWatcher, env map[string]string) (deps, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return deps{
		stdout: &stdout,
		stderr: &stderr,
		lookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
		watcher: func() supervisor.Watcher { return w },
		host:    func() supervisor.HostProbe { return stubHost{} },
	}, &stdout, &stderr
}

func execute(d deps, args ...string) error {
	cmd := newRootCmd(d)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

var exampleRecords = []types.ConnectionRecord{
	{IPVersion: "IP4", Transport: "TCP", LocalAddress: "127.0.0.1", LocalPort: 5000, RemoteAddress: "127.0.0.1", RemotePort: 41000, State: types.StateEstablished, PID: 10},
	{IPVersion: "IP4", Transport: "TCP", LocalAddress: "10.0.0.5", LocalPort: 443, State: types.StateListen, PID: 11},
}

func TestConsoleReport(t *testing.T) {
	w := &stubWatcher{records: exampleRecords}
	d, stdout, _ := testDeps(w, nil)

	require.NoError(t, execute(d, "ip4-connections-check"))
	assert.Equal(t, 1, w.calls)

	var lines []string
	for _, l := range strings.Split(stdout.String(), "\n") {
		if strings.HasPrefix(l, "IP4:TCP;") {
			lines = append(lines, l)
		}
	}
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Local:127.0.0.1:5000")
	assert.Contains(t, lines[0], "Status:ESTABLISHED")
	assert.Contains(t, lines[1], "Local:10.0.0.5:443")
	assert.Contains(t, lines[1], "Status:LISTEN")
}

func TestHTMLReport(t *testing.T) {
	w := &stubWatcher{records: exampleRecords}
	d, _, _ := testDeps(w, nil)
	out := filepath.Join(t.TempDir(), "report.html")
	metrics := filepath.Join(t.TempDir(), "connwatch.prom")

	require.NoError(t, execute(d, "ip4-connections-check", "--report_type", "Html", "--output", out, "--metrics-file", metrics))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), `<tr class="`))
	assert.Contains(t, string(data), "127.0.0.1:5000")
	assert.Contains(t, string(data), "10.0.0.5:443")

	_, err = os.Stat(metrics)
	assert.NoError(t, err)
}

func TestInvalidReportTypeSkipsWatch(t *testing.T) {
	w := &stubWatcher{records: exampleRecords}
	d, stdout, stderr := testDeps(w, nil)

	err := execute(d, "ip4-connections-check", "--report_type", "Pdf")
	require.Error(t, err)
	assert.Equal(t, cwerrors.KindUsage, cwerrors.GetKind(err))
	assert.NotZero(t, cwerrors.ExitCode(err))
	assert.Equal(t, 0, w.calls)
	assert.Contains(t, stderr.String(), "Usage:")
	assert.Empty(t, stdout.String())
}

func TestFlagErrorsAreUsageErrors(t *testing.T) {
	cases := map[string][]string{
		"unknown flag":  {"ip4-connections-check", "--report_typ", "Html"},
		"missing value": {"ip4-connections-check", "--report_type"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			w := &stubWatcher{records: exampleRecords}
			d, stdout, stderr := testDeps(w, nil)

			err := execute(d, args...)
			require.Error(t, err)
			assert.Equal(t, cwerrors.KindUsage, cwerrors.GetKind(err))
			assert.Equal(t, 2, cwerrors.ExitCode(err))
			assert.Equal(t, 0, w.calls)
			assert.Contains(t, stderr.String(), "Usage:")
			assert.Empty(t, stdout.String())
		})
	}
}

func TestTuiWithoutTerminalSkipsWatch(t *testing.T) {
	w := &stubWatcher{records: exampleRecords}
	d, _, _ := testDeps(w, nil)
	f, err := os.Create(filepath.Join(t.TempDir(), "stdout.txt"))
	require.NoError(t, err)
	defer f.Close()
	d.tty = f

	err = execute(d, "ip4-connections-check", "--report_type", "Tui")
	require.Error(t, err)
	assert.Equal(t, cwerrors.KindIO, cwerrors.GetKind(err))
	assert.Equal(t, 1, cwerrors.ExitCode(err))
	assert.Equal(t, 0, w.calls)
}

func TestLogLevelFromEnvironment(t *testing.T) {
	w := &stubWatcher{records: exampleRecords}
	d, _, stderr := testDeps(w, map[string]string{"LOG_LEVEL_NAME": "DEBUG"})

	require.NoError(t, execute(d, "ip4-connections-check"))
	assert.Contains(t, stderr.String(), "Analyzed connections")

	d, _, _ = testDeps(&stubWatcher{}, map[string]string{"LOG_LEVEL_NAME": "LOUD"})
	err := execute(d, "ip4-connections-check")
	require.Error(t, err)
	assert.Equal(t, cwerrors.KindConfig, cwerrors.GetKind(err))
}

func TestWatchFailureExitsNonZero(t *testing.T) {
	w := &stubWatcher{err: cwerrors.Wrap(errors.New("operation not permitted"), cwerrors.KindOSQuery, "failed to get connections")}
	d, stdout, _ := testDeps(w, nil)

	err := execute(d, "ip4-connections-check")
	require.Error(t, err)
	assert.Equal(t, cwerrors.KindOSQuery, cwerrors.GetKind(err))
	assert.Equal(t, 1, cwerrors.ExitCode(err))
	assert.Empty(t, stdout.String())
}

func TestAIRequiresKey(t *testing.T) {
	w := &stubWatcher{records: exampleRecords}
	d, _, _ := testDeps(w, nil)

	err := execute(d, "ip4-connections-check", "--ai")
	require.Error(t, err)
	assert.Equal(t, cwerrors.KindConfig, cwerrors.GetKind(err))
	assert.Equal(t, 0, w.calls)
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	w := &stubWatcher{records: exampleRecords}
	d, stdout, _ := testDeps(w, nil)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "connwatch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("report_type: Html\noutput: "+filepath.Join(dir, "from-config.html")+"\n"), 0o600))

	require.NoError(t, execute(d, "ip4-connections-check", "--config", cfgPath, "--report_type", "Console"))
	assert.Contains(t, stdout.String(), "IP4:TCP;")
	_, err := os.Stat(filepath.Join(dir, "from-config.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestHelpListsUsage(t *testing.T) {
	d, stdout, _ := testDeps(&stubWatcher{}, nil)

	require.NoError(t, execute(d, "ip4-connections-check", "--help"))
	assert.Contains(t, stdout.String(), "--report_type")
	assert.Contains(t, stdout.String(), "Console, Html, Tui")
}

func TestVersion(t *testing.T) {
	d, stdout, _ := testDeps(&stubWatcher{}, nil)

	require.NoError(t, execute(d, "version"))
	assert.Equal(t, "connwatch dev\n", stdout.String())
}
