// ABOUTME: Tests for the streaming shell executor against real processes.

package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamShellCapturesAndStreams(t *testing.T) {
	sink := &collectSink{}

	result, err := streamShell(context.Background(), []string{"sh", "-c", "echo alpha; echo beta"}, "104", 5*time.Second, sink)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "alpha\nbeta\n", result.Output)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 0, *result.ExitCode)

	out := sink.byType(EventShellOut)
	require.Len(t, out, 2)
	assert.Equal(t, "104", out[0].VMID)
	assert.Equal(t, "alpha\n", out[0].Output)
}

func TestStreamShellMergesStderr(t *testing.T) {
	sink := &collectSink{}

	result, err := streamShell(context.Background(), []string{"sh", "-c", "echo oops >&2; exit 3"}, "host", 5*time.Second, sink)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Output, "oops")
	assert.Empty(t, result.Stderr)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 3, *result.ExitCode)
}

func TestStreamShellTimeoutKillsProcess(t *testing.T) {
	sink := &collectSink{}
	start := time.Now()

	result, err := streamShell(context.Background(), []string{"sh", "-c", "sleep 30"}, "host", 150*time.Millisecond, sink)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out")

	ends := sink.byType(EventShellEnd)
	require.Len(t, ends, 1)
	require.NotNil(t, ends[0].ExitCode)
	assert.Equal(t, -1, *ends[0].ExitCode)
}

func TestStreamShellSinkFailureKillsProcess(t *testing.T) {
	sink := &collectSink{failAfter: 1}
	start := time.Now()

	// Emits a line immediately, then would run for 30s if not killed.
	_, err := streamShell(context.Background(), []string{"sh", "-c", "echo first; sleep 30"}, "host", time.Minute, sink)

	assert.ErrorIs(t, err, ErrClientGone)
	assert.Less(t, time.Since(start), 5*time.Second, "process must be killed when the client goes away")
}

func TestStreamShellLongOutputTruncatedToTail(t *testing.T) {
	sink := &collectSink{}

	result, err := streamShell(context.Background(),
		[]string{"sh", "-c", "i=0; while [ $i -lt 500 ]; do echo line-$i; i=$((i+1)); done"},
		"host", 10*time.Second, sink)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.Output, "...(truncated)..."))
	assert.True(t, strings.HasSuffix(result.Output, "line-499\n"))
	assert.Len(t, sink.byType(EventShellOut), 500, "streaming is never truncated, only the captured result")
}

func TestStreamShellCompletionAtDeadlineIsNotTimeout(t *testing.T) {
	// A command that finishes on its own, even right at the deadline, must
	// keep its real exit code; only a killed process reports a timeout.
	for i := 0; i < 200; i++ {
		sink := &collectSink{}
		result, err := streamShell(context.Background(), []string{"sh", "-c", "echo ok"}, "host", 4*time.Millisecond, sink)

		require.NoError(t, err)
		if !result.Success {
			genuine := strings.Contains(result.Error, "timed out") || strings.Contains(result.Error, "deadline")
			require.True(t, genuine, "a failed quick command must only ever be a genuine kill, got %q", result.Error)
			continue
		}
		require.NotNil(t, result.ExitCode)
		assert.Equal(t, 0, *result.ExitCode)
		ends := sink.byType(EventShellEnd)
		require.Len(t, ends, 1)
		assert.Equal(t, 0, *ends[0].ExitCode)
	}
}

func TestStreamShellCanceledParentKillsProcess(t *testing.T) {
	sink := &collectSink{}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	start := time.Now()

	result, err := streamShell(ctx, []string{"sh", "-c", "sleep 30"}, "host", time.Minute, sink)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, result.Success)
}
