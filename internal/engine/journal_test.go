package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/metric"
)

type memJournal struct {
	records []engine.RunRecord
	err     error
}

func (j *memJournal) RecordRun(_ context.Context, rec engine.RunRecord) error {
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, rec)
	return nil
}

func TestJournal_RecordsRuns(t *testing.T) {
	j := &memJournal{}
	c := newContext(t, engine.WithJournal(j))
	registerScale(t, c)

	a := newInstance(t, c, "scale")
	a.SetName("doubler")
	require.Error(t, a.Run(context.Background()))

	require.NoError(t, a.SetInput("value", 5))
	require.NoError(t, a.Run(context.Background()))

	require.Len(t, j.records, 2)

	failed := j.records[0]
	assert.Equal(t, int64(1), failed.Seq)
	assert.Equal(t, "session-test", failed.Session)
	assert.Equal(t, "inst-0001", failed.InstanceID)
	assert.Equal(t, "doubler", failed.Name)
	assert.Equal(t, "scale", failed.Algorithm)
	assert.Equal(t, engine.StatusFailed, failed.Status)
	assert.Equal(t, engine.CodeMissingRequiredInput, failed.ErrorCode)
	assert.Contains(t, failed.ErrorMessage, "slot=value")
	assert.Empty(t, failed.Outputs)

	ok := j.records[1]
	assert.Equal(t, int64(2), ok.Seq)
	assert.Equal(t, engine.StatusSucceeded, ok.Status)
	assert.Equal(t, engine.CodeOK, ok.ErrorCode)
	assert.Equal(t, map[string]string{"value": "double", "factor": "double"}, ok.Inputs)
	assert.Equal(t, map[string]string{"result": "double"}, ok.Outputs)
}

func TestJournal_WriteFailureDoesNotFailRun(t *testing.T) {
	j := &memJournal{err: errors.New("disk full")}
	c := newContext(t, engine.WithJournal(j))
	registerScale(t, c)

	a := newInstance(t, c, "scale")
	require.NoError(t, a.SetInput("value", 1.0))
	assert.NoError(t, a.Run(context.Background()))
}

func TestMetrics_CountRunsConversionsAndLiveData(t *testing.T) {
	m, err := metric.New(nil)
	require.NoError(t, err)
	c := newContext(t, engine.WithMetrics(m))
	registerScale(t, c)

	a, err := c.NewAlgorithm("scale")
	require.NoError(t, err)
	require.Error(t, a.Run(context.Background()))
	require.NoError(t, a.SetInput("value", 5))
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlgorithmRuns.WithLabelValues("scale", engine.StatusSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlgorithmRuns.WithLabelValues("scale", engine.StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conversions.WithLabelValues("int", "double", "ok")))
	assert.Positive(t, testutil.ToFloat64(m.DataLive))

	a.Release()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DataLive))
}
