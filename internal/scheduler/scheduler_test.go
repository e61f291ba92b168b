package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name string
	runs int
	err  error
}

func (j *fakeJob) Run() error   { j.runs++; return j.err }
func (j *fakeJob) Name() string { return j.name }

func TestAddJob(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("0 0 3 * * *", &fakeJob{name: "refresh_models"})
	assert.NoError(t, err)
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a cron spec", &fakeJob{name: "refresh_models"})
	assert.Error(t, err)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &fakeJob{name: "refresh_models"}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)
}

func TestRunNow_PropagatesError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &fakeJob{name: "refresh_models", err: errors.New("boom")}

	assert.Error(t, s.RunNow(job))
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@hourly", &fakeJob{name: "refresh_models"}))

	s.Start()
	s.Stop()
}
