package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vbattery/core/factory"
)

type recordingSink struct {
	runs      []RunEvent
	publishes []PublishEvent
	err       error
}

func (s *recordingSink) RecordRun(ev RunEvent) error {
	s.runs = append(s.runs, ev)
	return s.err
}

func (s *recordingSink) RecordPublish(ev PublishEvent) error {
	s.publishes = append(s.publishes, ev)
	return s.err
}

type runOnly struct{ n int }

func (s *runOnly) RecordRun(RunEvent) error { s.n++; return nil }

func TestMultiSink(t *testing.T) {
	a := &recordingSink{err: errors.New("a failed")}
	b := &recordingSink{}
	c := &runOnly{}
	m := NewMultiSink(a, b, c)

	err := m.RecordRun(RunEvent{RunID: "r1"})
	assert.ErrorContains(t, err, "a failed")
	assert.Len(t, b.runs, 1, "later sinks still receive the event")
	assert.Equal(t, 1, c.n)

	require.Error(t, m.RecordPublish(PublishEvent{StatisticID: "s"}))
	assert.Len(t, b.publishes, 1)
}

func TestNewRunSink(t *testing.T) {
	s, err := NewRunSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	require.NoError(t, RegisterRunSink("test-recording", func(map[string]any) (RunSink, error) {
		return &recordingSink{}, nil
	}))
	s, err = NewRunSink([]factory.ModuleConfig{{Type: "test-recording"}})
	require.NoError(t, err)
	assert.IsType(t, &recordingSink{}, s)

	s, err = NewRunSink([]factory.ModuleConfig{{Type: "test-recording"}, {Type: "test-recording"}})
	require.NoError(t, err)
	assert.Len(t, s.(*MultiSink).Sinks, 2)

	_, err = NewRunSink([]factory.ModuleConfig{{Type: "test-recording"}, {Type: "missing"}})
	assert.Error(t, err)
}

type closingSink struct {
	runOnly
	closed int
}

func (s *closingSink) Close() { s.closed++ }

func TestClose(t *testing.T) {
	a, b := &closingSink{}, &closingSink{}
	Close(NewMultiSink(a, &runOnly{}, b))
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)

	single := &closingSink{}
	Close(single)
	assert.Equal(t, 1, single.closed)

	assert.NotPanics(t, func() { Close(NopSink{}) })
}
