package progress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_LifecycleTransitions(t *testing.T) {
	r := NewRegistry()
	r.Register("job-1", "movie.en.srt", 10)

	j, ok := r.Get("job-1")
	require.True(t, ok)
	require.Equal(t, Pending, j.State)
	require.Equal(t, "movie.en.srt", j.Name)
	require.Equal(t, 10, j.TotalCues)

	r.Activate("job-1")
	r.Update("job-1", 5, 10, "translating batch 1")

	j, _ = r.Get("job-1")
	require.Equal(t, Active, j.State)
	require.Equal(t, 5, j.CompletedCues)
	require.Equal(t, 10, j.TotalCues)

	r.Finish("job-1", Done, nil)
	_, ok = r.Get("job-1")
	require.False(t, ok, "a finished job must be removed from the registry")
}

func TestRegistry_FinishRemovesJobEvenOnFailure(t *testing.T) {
	r := NewRegistry()
	r.Register("job-1", "movie.en.srt", 10)
	r.Finish("job-1", Failed, errors.New("boom"))

	_, ok := r.Get("job-1")
	require.False(t, ok)
	require.Empty(t, r.List())
}

func TestRegistry_FinishIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("job-1", "movie.en.srt", 10)
	r.Finish("job-1", Failed, errors.New("boom"))
	require.NotPanics(t, func() { r.Finish("job-1", Done, nil) })
}

func TestRegistry_FinishOnUnknownJobIsNoOp(t *testing.T) {
	r := NewRegistry()
	require.NotPanics(t, func() { r.Finish("nope", Done, nil) })
}

func TestRegistry_ListOnlyReturnsActiveAndPendingJobs(t *testing.T) {
	r := NewRegistry()
	r.Register("a", "a.srt", 0)
	r.Register("b", "b.srt", 0)
	r.Finish("b", Done, nil)

	jobs := r.List()
	require.Len(t, jobs, 1)
	require.Equal(t, "a", jobs[0].ID)
}

func TestRegistry_GetUnknownJob(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nope")
	require.False(t, ok)
}
