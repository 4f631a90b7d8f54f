package profile

import (
	"context"
	"sort"
	"time"
)

// repoMock is an in-memory profile repo used in tests.
type repoMock struct {
	profiles map[string]Profile
	history  []HistoryRecord
	nextID   int64

	// Now is the clock used for stamping timestamps; tests may override it.
	Now func() time.Time
}

func NewMockProfileRepo() *repoMock {
	return &repoMock{
		profiles: make(map[string]Profile),
		nextID:   1,
		Now:      time.Now,
	}
}

func (r *repoMock) Upsert(_ context.Context, p Profile) (*Profile, error) {
	now := r.Now().UTC()
	if existing, ok := r.profiles[p.UserID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.CustomFields == nil {
		p.CustomFields = make([]CustomField, 0)
	}
	r.profiles[p.UserID] = p
	return &p, nil
}

func (r *repoMock) Get(_ context.Context, userID string) (*Profile, error) {
	if p, ok := r.profiles[userID]; ok {
		return &p, nil
	}
	return EmptyProfile(userID), nil
}

func (r *repoMock) AddHistoryRecord(_ context.Context, record HistoryRecord) (*HistoryRecord, error) {
	record.ID = r.nextID
	r.nextID++
	record.RecordedAt = r.Now().UTC()
	r.history = append(r.history, record)
	return &record, nil
}

func (r *repoMock) History(_ context.Context, userID string, limit int) ([]HistoryRecord, error) {
	result := make([]HistoryRecord, 0)
	for _, record := range r.history {
		if record.UserID == userID {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt.After(result[j].RecordedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
