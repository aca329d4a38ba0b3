package service

import (
	"errors"
	"testing"
	"time"
)

func TestJobManager_Lifecycle(t *testing.T) {
	m := NewJobManager()

	job := m.Create(JobTypeAnalysis, "https://example.com", []string{"Bob"}, 5)
	if job.ID == "" || len(job.ID) != 8 {
		t.Errorf("ID = %q, want 8-char id", job.ID)
	}
	if got := m.Get(job.ID); got != job {
		t.Error("Get() did not return the created job")
	}
	if m.Get("missing") != nil {
		t.Error("Get() for unknown id should be nil")
	}

	snap := job.Snapshot()
	if snap.Status != JobStatusPending || snap.Total != 5 {
		t.Errorf("snapshot = %+v", snap)
	}

	m.UpdateProgress(job, 2)
	snap = job.Snapshot()
	if snap.Status != JobStatusRunning || snap.Progress != 2 {
		t.Errorf("after progress: %+v", snap)
	}
	if job.Done() {
		t.Error("running job reported done")
	}

	m.Complete(job, "result")
	snap = job.Snapshot()
	if snap.Status != JobStatusCompleted || snap.Progress != 5 || snap.CompletedAt == nil {
		t.Errorf("after complete: %+v", snap)
	}
	if !job.Done() {
		t.Error("completed job not done")
	}
}

func TestJobManager_Fail(t *testing.T) {
	m := NewJobManager()
	job := m.Create(JobTypeFocusGroup, "https://example.com", nil, 3)

	m.Fail(job, errors.New("boom"), nil)
	snap := job.Snapshot()
	if snap.Status != JobStatusFailed || snap.Error != "boom" {
		t.Errorf("after fail: %+v", snap)
	}
}

func TestJobManager_ListOrder(t *testing.T) {
	m := NewJobManager()
	first := m.Create(JobTypeAnalysis, "https://a.test", nil, 1)
	first.StartedAt = time.Now().Add(-time.Minute)
	second := m.Create(JobTypeAnalysis, "https://b.test", nil, 1)

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("List() = %d jobs", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("List() order = %s, %s", list[0].ID, list[1].ID)
	}
}
