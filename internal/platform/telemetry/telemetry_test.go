package telemetry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStartSpan_Noop(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "session.cycle")
	defer span.End()

	assert.NotNil(t, ctx)
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("")

	m.CommandRouted("inspire me")
	m.CommandRouted("inspire me")
	m.CommandRouted("add a quote")
	m.PersistenceFailed("save")
	m.RecognitionFailed()
	m.SetQuotes(7)
	m.DialogFinished(2)

	assert.InDelta(t, 2, testutil.ToFloat64(m.commands.WithLabelValues("inspire me")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.commands.WithLabelValues("add a quote")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.persistenceFailures.WithLabelValues("save")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.recognitionFailures), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.quotes), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.dialogRounds))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.CommandRouted("inspire me")
	m.DialogFinished(1)
	m.SetQuotes(1)
	m.PersistenceFailed("load")
	m.RecognitionFailed()
	assert.NoError(t, m.Flush())
}

func TestMetrics_FlushWritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotebox.prom")
	m := NewMetrics(path)
	m.SetQuotes(3)

	require.NoError(t, m.Flush())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "quotebox_quotes 3")
}

func TestMetrics_FlushWithoutTextfile(t *testing.T) {
	m := NewMetrics("")
	assert.NoError(t, m.Flush())
}
