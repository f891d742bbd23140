package server

import (
	"errors"
	"fmt"
	"testing"
)

func TestJobs_Lifecycle(t *testing.T) {
	jobs := NewJobs(0)
	job := jobs.Create("NeurIPS 2024")
	if job.ID == "" || job.State != JobRunning {
		t.Fatalf("new job = %+v", job)
	}

	jobs.Progress(job.ID, 0.5, "Indexing paper 1-2/4...")
	got, ok := jobs.Get(job.ID)
	if !ok || got.Progress != 0.5 || got.Message != "Indexing paper 1-2/4..." {
		t.Errorf("after progress = %+v", got)
	}

	jobs.Finish(job.ID, 4, nil)
	got, _ = jobs.Get(job.ID)
	if got.State != JobDone || got.Progress != 1 || got.Papers != 4 || got.FinishedAt == nil {
		t.Errorf("finished job = %+v", got)
	}

	failed := jobs.Create("ICML 1999")
	jobs.Finish(failed.ID, 0, errors.New("unknown conference"))
	got, _ = jobs.Get(failed.ID)
	if got.State != JobFailed || got.Error != "unknown conference" {
		t.Errorf("failed job = %+v", got)
	}
}

func TestJobs_KeepsOnlyRecentFinished(t *testing.T) {
	jobs := NewJobs(2)
	running := jobs.Create("still building")

	var ids []string
	for i := 0; i < 5; i++ {
		job := jobs.Create(fmt.Sprintf("corpus %d", i))
		jobs.Finish(job.ID, i, nil)
		// A second Finish must not count the job twice.
		jobs.Finish(job.ID, i, nil)
		ids = append(ids, job.ID)
	}

	for i, id := range ids {
		_, ok := jobs.Get(id)
		if want := i >= 3; ok != want {
			t.Errorf("job %d present = %v, want %v", i, ok, want)
		}
	}
	if _, ok := jobs.Get(running.ID); !ok {
		t.Error("running jobs must never be evicted")
	}
	if len(jobs.jobs) != 3 {
		t.Errorf("registry holds %d jobs, want 3", len(jobs.jobs))
	}
}
