package service

import (
	"context"
	"io"
	"sync"
	"time"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/llm"
)

type fakeCompleter struct {
	mu        sync.Mutex
	responses []*llm.Response
	err       error
	calls     int
	lastUser  string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string, _ int) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastUser = user
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &llm.Response{Content: ""}, nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

type fakeGenerator struct {
	result   GenerationResult
	profiles []*domain.UserProfile
}

func (f *fakeGenerator) Generate(_ context.Context, profile *domain.UserProfile) GenerationResult {
	f.profiles = append(f.profiles, profile)
	return f.result
}

type fakeTranscriber struct {
	text     string
	err      error
	received []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, audio io.Reader) (string, error) {
	f.received, _ = io.ReadAll(audio)
	return f.text, f.err
}

type fakeExtractor struct {
	out      string
	err      error
	lastUser string
}

func (f *fakeExtractor) CompleteJSON(_ context.Context, _, user string, _ int) (string, error) {
	f.lastUser = user
	return f.out, f.err
}

type fakeArchive struct {
	keys    []string
	deleted []string
	err     error
}

func (f *fakeArchive) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if f.err != nil {
		return f.err
	}
	_, _ = io.ReadAll(body)
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeArchive) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://example.test/" + key, nil
}

func (f *fakeArchive) DeleteObject(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

const validPlanJSON = `{
  "title": "Strength Basics",
  "description": "Full body strength.",
  "total_duration": "45 minutes",
  "difficulty": "intermediate",
  "sections": [
    {"name": "Main", "duration": "30 minutes", "exercises": [
      {"name": "Squat", "duration": "3 x 10", "instructions": "Sit back.", "modifications": ""}
    ]}
  ],
  "notes": ["Hydrate."],
  "progression": "Add weight weekly."
}`

func testProfile() *domain.UserProfile {
	return &domain.UserProfile{
		UserID:        "s1",
		Name:          "Athlete",
		PhysicalStats: domain.PhysicalStats{HeightCm: 180, WeightKg: 80, Gender: "male", Age: 30},
		Goals:         []domain.FitnessGoal{{GoalType: "strength"}},
		ActivityLevel: "moderately_active",
	}
}
