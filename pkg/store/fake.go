package store

import (
	"context"
	"sync"
)

// Fake is an in-memory Store for exercising the Review Engine and API
// handlers without a real database.
type Fake struct {
	mu        sync.Mutex
	reviews   []ReviewRecord
	failures  []FailureLog
	nextRevID int64
	nextFlID  int64
	Err       error
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Close() error { return nil }

func (f *Fake) InsertReview(_ context.Context, r ReviewRecord) (int64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRevID++
	r.ID = f.nextRevID
	f.reviews = append(f.reviews, r)
	return r.ID, nil
}

func (f *Fake) InsertFailure(_ context.Context, fl FailureLog) (int64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextFlID++
	fl.ID = f.nextFlID
	f.failures = append(f.failures, fl)
	return fl.ID, nil
}

func (f *Fake) UpdateReviewEmailStatus(_ context.Context, id int64, sent bool, to, cc []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.reviews {
		if f.reviews[i].ID == id {
			f.reviews[i].EmailSent = sent
			f.reviews[i].EmailTo = to
			f.reviews[i].EmailCc = cc
			return nil
		}
	}
	return errNotFound
}

func (f *Fake) GetReview(_ context.Context, id int64) (ReviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.ID == id {
			return r, nil
		}
	}
	return ReviewRecord{}, errNotFound
}

func (f *Fake) ListReviews(_ context.Context, offset, limit int) (Page[ReviewRecord], error) {
	limit = clampLimit(limit)
	f.mu.Lock()
	defer f.mu.Unlock()
	total := int64(len(f.reviews))
	if offset >= len(f.reviews) {
		return Page[ReviewRecord]{Total: total}, nil
	}
	end := offset + limit
	if end > len(f.reviews) {
		end = len(f.reviews)
	}
	out := make([]ReviewRecord, end-offset)
	copy(out, f.reviews[offset:end])
	return Page[ReviewRecord]{Total: total, Rows: out}, nil
}

func (f *Fake) ListReviewsByProject(_ context.Context, projectKey, repoSlug string, limit int) ([]ReviewRecord, error) {
	limit = clampLimit(limit)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ReviewRecord
	for _, r := range f.reviews {
		if r.ProjectKey == projectKey && (repoSlug == "" || r.RepoSlug == repoSlug) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *Fake) ListReviewsByAuthor(_ context.Context, email string, limit int) ([]ReviewRecord, error) {
	limit = clampLimit(limit)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ReviewRecord
	for _, r := range f.reviews {
		if r.AuthorEmail == email {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *Fake) ListReviewsByCommit(_ context.Context, commitID string) ([]ReviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ReviewRecord
	for _, r := range f.reviews {
		if r.CommitID == commitID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) ListReviewsByMR(_ context.Context, mrID int64) ([]ReviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ReviewRecord
	for _, r := range f.reviews {
		if r.MRID == mrID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) GetFailure(_ context.Context, id int64) (FailureLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fl := range f.failures {
		if fl.ID == id {
			return fl, nil
		}
	}
	return FailureLog{}, errNotFound
}

func (f *Fake) ListFailures(_ context.Context, offset, limit int) (Page[FailureLog], error) {
	limit = clampLimit(limit)
	f.mu.Lock()
	defer f.mu.Unlock()
	total := int64(len(f.failures))
	if offset >= len(f.failures) {
		return Page[FailureLog]{Total: total}, nil
	}
	end := offset + limit
	if end > len(f.failures) {
		end = len(f.failures)
	}
	out := make([]FailureLog, end-offset)
	copy(out, f.failures[offset:end])
	return Page[FailureLog]{Total: total, Rows: out}, nil
}

func (f *Fake) ListFailuresByProject(_ context.Context, projectKey, repoSlug string, limit int) ([]FailureLog, error) {
	limit = clampLimit(limit)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FailureLog
	for _, fl := range f.failures {
		if fl.ProjectKey == projectKey && (repoSlug == "" || fl.RepoSlug == repoSlug) {
			out = append(out, fl)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *Fake) ListFailuresByStage(_ context.Context, stage string, resolved bool, limit int) ([]FailureLog, error) {
	limit = clampLimit(limit)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FailureLog
	for _, fl := range f.failures {
		if fl.FailureStage == stage && fl.Resolved == resolved {
			out = append(out, fl)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *Fake) MarkFailureResolved(_ context.Context, id int64, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.failures {
		if f.failures[i].ID == id {
			f.failures[i].Resolved = true
			f.failures[i].ResolutionNotes = notes
			return nil
		}
	}
	return errNotFound
}
