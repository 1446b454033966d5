package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/llm"
	"alcyxob/fitness-coach/internal/normalize"
	"alcyxob/fitness-coach/internal/repair"
	"alcyxob/fitness-coach/internal/schema"
	"alcyxob/fitness-coach/internal/storage"
)

// --- Error Definitions ---
var (
	ErrEmptyAudio          = errors.New("audio file is empty")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrExtractionFailed    = errors.New("could not extract answers from transcript")
)

const extractionSystemPrompt = "You extract structured fields from short spoken transcripts. " +
	"Return ONLY minified JSON matching the schema. " +
	"Normalize units: height in centimeters, weight in kilograms. If unknown, use null or an empty array. " +
	"If the user says 'I am 5 feet 10 inches tall', convert to 177.8 cm."

// TranscriptionResult is a voice answer converted into stage selections. It does not
// touch the session; clients submit Selections through the normal ingest flow.
type TranscriptionResult struct {
	Transcript string
	Stage      domain.Stage
	Selections domain.Selections
	Missing    []string // Required fields still absent after ingest normalization
	AudioKey   string   // Archive object key, empty without an archive
	AudioURL   string   // Presigned download URL for AudioKey
}

// --- Service Interface ---

// TranscriptionService turns uploaded audio into selections for a stage.
type TranscriptionService interface {
	Transcribe(ctx context.Context, stage domain.Stage, sessionID, filename string, audio io.Reader) (*TranscriptionResult, error)
}

// TranscriptionOptions tunes extraction and archiving.
type TranscriptionOptions struct {
	ExtractionMaxTokens int
	ArchivePrefix       string
	// PresignExpiry is the lifetime of the download URL returned for archived clips.
	PresignExpiry time.Duration
}

// --- Service Implementation ---

// transcriptionService implements the TranscriptionService interface.
type transcriptionService struct {
	transcriber llm.Transcriber
	extractor   llm.JSONCompleter
	archive     storage.AudioArchive // Optional
	opts        TranscriptionOptions
	logger      *zap.Logger
}

// NewTranscriptionService creates the speech flow. archive may be nil.
func NewTranscriptionService(transcriber llm.Transcriber, extractor llm.JSONCompleter, archive storage.AudioArchive, opts TranscriptionOptions, logger *zap.Logger) TranscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transcriptionService{
		transcriber: transcriber,
		extractor:   extractor,
		archive:     archive,
		opts:        opts,
		logger:      logger,
	}
}

// Transcribe archives the clip, transcribes it and extracts the stage's selections.
func (s *transcriptionService) Transcribe(ctx context.Context, stage domain.Stage, sessionID, filename string, audio io.Reader) (*TranscriptionResult, error) {
	// 1. Validate input
	if !stage.Valid() {
		return nil, fmt.Errorf("unsupported stage: %q", stage)
	}
	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	// 2. Archive the clip; failures are logged and ignored
	res := &TranscriptionResult{Stage: stage}
	if s.archive != nil {
		key := storage.AudioObjectKey(s.opts.ArchivePrefix, sessionID, filename)
		if err := s.archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), http.DetectContentType(data)); err != nil {
			s.logger.Warn("Audio archive unavailable, continuing without it", zap.Error(err))
		} else {
			res.AudioKey = key
			res.AudioURL = s.downloadURL(ctx, key)
		}
	}

	// 3. Speech to text
	transcript, err := s.transcriber.Transcribe(ctx, filename, bytes.NewReader(data))
	if err != nil {
		s.discard(ctx, res.AudioKey)
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	res.Transcript = strings.TrimSpace(transcript)

	// 4. Extract selections; an empty transcript yields empty selections
	if res.Transcript == "" {
		res.Selections, _ = domain.DecodeSelectionsLenient(stage, nil)
	} else {
		res.Selections, err = s.extract(ctx, stage, res.Transcript)
		if err != nil {
			return nil, err
		}
	}
	res.Missing = missingAfterIngest(res.Selections)

	s.logger.Info("Transcribed voice answer",
		zap.String("stage", string(stage)),
		zap.String("sessionId", sessionID),
		zap.Int("transcriptLength", len(res.Transcript)),
		zap.Strings("missing", res.Missing))
	return res, nil
}

// missingAfterIngest reports the required fields that would still be missing once
// sel went through ingest normalization: off-list values and non-positive numbers drop out.
func missingAfterIngest(sel domain.Selections) []string {
	switch v := sel.(type) {
	case domain.BasicSelections:
		b := &domain.Basics{}
		mergeBasics(b, v)
		return schema.MissingForBasics(b)
	case domain.GoalsSelections:
		return schema.MissingForGoals(&domain.GoalBlock{Goals: normalize.MatchMany(v.Goals, domain.GoalValues)})
	}
	return schema.ComputeMissing(sel.Stage(), schema.SelectionValues(sel))
}

// downloadURL presigns key, returning "" on failure.
func (s *transcriptionService) downloadURL(ctx context.Context, key string) string {
	url, err := s.archive.GeneratePresignedDownloadURL(ctx, key, s.opts.PresignExpiry)
	if err != nil {
		s.logger.Warn("Failed to presign archived audio", zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}

// discard removes a clip whose transcription failed; such clips are never referenced.
func (s *transcriptionService) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.archive.DeleteObject(ctx, key); err != nil {
		s.logger.Warn("Failed to remove archived audio", zap.String("key", key), zap.Error(err))
	}
}

// extract asks the model for the stage's fields as JSON and decodes them leniently.
func (s *transcriptionService) extract(ctx context.Context, stage domain.Stage, transcript string) (domain.Selections, error) {
	description, err := schema.Describe(stage)
	if err != nil {
		return nil, err
	}
	user := fmt.Sprintf("Schema: %s\nTranscript: %s", description, transcript)
	raw, err := s.extractor.CompleteJSON(ctx, extractionSystemPrompt, user, s.opts.ExtractionMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	obj, err := repair.ParseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return domain.DecodeSelectionsLenient(stage, obj)
}
