package web

import (
	"sync"
	"time"

	"github.com/nconklindev/unitclean/internal/batch"
	"github.com/nconklindev/unitclean/internal/cleaner"
)

// job is one upload of one or more files, cleaned into its own directory.
type job struct {
	ID      string
	Dir     string
	Created time.Time
	Entries []batch.Entry

	// suspended runs by id
	runs map[string]*cleaner.Run
}

// jobView is a copy of a job safe to render outside the store lock.
type jobView struct {
	ID      string        `json:"id"`
	Created time.Time     `json:"created"`
	Entries []batch.Entry `json:"entries"`
	Pending int           `json:"pending"`
	Outputs int           `json:"outputs"`
}

// jobStore holds jobs and the runs waiting for review in memory.
type jobStore struct {
	mu    sync.Mutex
	jobs  map[string]*job
	byRun map[string]string
}

func newJobStore() *jobStore {
	return &jobStore{
		jobs:  make(map[string]*job),
		byRun: make(map[string]string),
	}
}

func (s *jobStore) add(j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[j.ID] = j
	for id := range j.runs {
		s.byRun[id] = j.ID
	}
}

func (s *jobStore) view(id string) (jobView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return jobView{}, false
	}

	v := jobView{
		ID:      j.ID,
		Created: j.Created,
		Entries: append([]batch.Entry(nil), j.Entries...),
	}
	for _, e := range j.Entries {
		if e.Outcome == batch.OutcomePending {
			v.Pending++
		}
		if e.Output != "" {
			v.Outputs++
		}
	}
	return v, true
}

// jobOf returns the id of the job a suspended run belongs to.
func (s *jobStore) jobOf(runID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byRun[runID]
	return id, ok
}

// claim removes a suspended run from the store so exactly one caller
// resumes it.
func (s *jobStore) claim(runID string) (*job, *cleaner.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byRun[runID]
	if !ok {
		return nil, nil, false
	}
	j := s.jobs[id]
	run := j.runs[runID]
	delete(s.byRun, runID)
	delete(j.runs, runID)
	return j, run, run != nil
}

// settle replaces the pending entry of runID with its final entry.
func (s *jobStore) settle(jobID, runID string, entry batch.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return
	}
	entry.RunID = runID
	for i, e := range j.Entries {
		if e.RunID == runID && e.Outcome == batch.OutcomePending {
			j.Entries[i] = entry
			return
		}
	}
	j.Entries = append(j.Entries, entry)
}
