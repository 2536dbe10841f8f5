package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/akilli-icerik/apiserver/config"
	"github.com/akilli-icerik/apiserver/internal/events"
	"github.com/akilli-icerik/apiserver/internal/extract"
	"github.com/akilli-icerik/apiserver/internal/pool"
	"github.com/akilli-icerik/apiserver/types"
	"github.com/rs/zerolog"
)

const remoteVideoBaseName = "youtube-video-analysis"

var (
	// ErrNoInput is returned when neither a file nor a remote video URL
	// was provided.
	ErrNoInput = errors.New("upload a file or provide a remote video url")
	// ErrAmbiguousInput is returned when both input kinds were provided.
	ErrAmbiguousInput = errors.New("provide either a file or a remote video url, not both")
)

// TextExtractor converts an upload or a remote video into plain text.
type TextExtractor interface {
	ExtractFile(ctx context.Context, filename string, data []byte) (string, error)
	ExtractRemoteVideo(ctx context.Context, url string) (string, error)
}

// Summarizer turns extracted text into a Markdown report.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ArtifactStore persists a generated report under a per-user namespace and
// returns its locator.
type ArtifactStore interface {
	Store(ctx context.Context, namespace, baseName, content string) (string, error)
}

// ReportRecorder persists and lists report metadata records.
type ReportRecorder interface {
	Create(ctx context.Context, report types.Report) (types.Report, error)
	ListByUser(ctx context.Context, userID, offset, limit int) ([]types.Report, error)
}

// EventPublisher emits best-effort report.created notifications.
type EventPublisher interface {
	PublishReportCreated(ctx context.Context, event events.ReportCreated) error
}

// AnalyzeInput carries exactly one of an uploaded file or a remote video URL.
type AnalyzeInput struct {
	FileName       string
	Data           []byte
	RemoteVideoURL string
}

// AnalyzeResult is the outcome of a successful pipeline run. Locator is
// empty when the artifact write failed under the "ignore" policy.
type AnalyzeResult struct {
	UserIDStr string
	Markdown  string
	Locator   string
}

// ReportService sequences the analysis pipeline: validate, extract,
// summarize, persist artifact, record metadata. The stages run strictly
// sequentially; every blocking external call goes through the worker pool.
type ReportService struct {
	extractor   TextExtractor
	summarizer  Summarizer
	artifacts   ArtifactStore
	reports     ReportRecorder
	publisher   EventPublisher
	workers     *pool.Pool
	storePolicy string
	log         zerolog.Logger
}

// NewReportService wires the pipeline. reports and publisher may be nil
// (the json-file deployment has no metadata store, events are optional).
func NewReportService(
	extractor TextExtractor,
	summarizer Summarizer,
	artifacts ArtifactStore,
	reports ReportRecorder,
	publisher EventPublisher,
	workers *pool.Pool,
	storePolicy string,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		extractor:   extractor,
		summarizer:  summarizer,
		artifacts:   artifacts,
		reports:     reports,
		publisher:   publisher,
		workers:     workers,
		storePolicy: storePolicy,
		log:         log,
	}
}

// Analyze runs the full pipeline for an authenticated user.
func (s *ReportService) Analyze(ctx context.Context, user types.User, in AnalyzeInput) (AnalyzeResult, error) {
	hasFile := strings.TrimSpace(in.FileName) != "" || len(in.Data) > 0
	hasURL := strings.TrimSpace(in.RemoteVideoURL) != ""

	if !hasFile && !hasURL {
		return AnalyzeResult{}, ErrNoInput
	}
	if hasFile && hasURL {
		return AnalyzeResult{}, ErrAmbiguousInput
	}

	var text string
	var baseName string
	var err error
	if hasFile {
		baseName = strings.TrimSuffix(filepath.Base(in.FileName), filepath.Ext(in.FileName))
		err = s.workers.Do(ctx, func() error {
			var extractErr error
			text, extractErr = s.extractor.ExtractFile(ctx, in.FileName, in.Data)
			return extractErr
		})
	} else {
		baseName = remoteVideoBaseName
		err = s.workers.Do(ctx, func() error {
			var extractErr error
			text, extractErr = s.extractor.ExtractRemoteVideo(ctx, in.RemoteVideoURL)
			return extractErr
		})
	}
	if err != nil {
		return AnalyzeResult{}, err
	}

	// "Successfully extracted nothing" is the caller's fault, not the
	// extraction mechanism's.
	if strings.TrimSpace(text) == "" {
		return AnalyzeResult{}, extract.ErrNoTextExtracted
	}

	var markdown string
	if err := s.workers.Do(ctx, func() error {
		var genErr error
		markdown, genErr = s.summarizer.Summarize(ctx, text)
		return genErr
	}); err != nil {
		return AnalyzeResult{}, err
	}

	var locator string
	storeErr := s.workers.Do(ctx, func() error {
		var putErr error
		locator, putErr = s.artifacts.Store(ctx, user.UserIDStr, baseName, markdown)
		return putErr
	})
	if storeErr != nil {
		if s.storePolicy == config.StoragePolicyFatal {
			return AnalyzeResult{}, storeErr
		}
		s.log.Error().Err(storeErr).
			Str("user_id_str", user.UserIDStr).
			Msg("artifact store failed, responding without locator")
		locator = ""
	}

	if locator != "" {
		s.recordMetadata(ctx, user, locator, in.FileName)
		s.publishCreated(ctx, user, locator, in.FileName)
	}

	return AnalyzeResult{
		UserIDStr: user.UserIDStr,
		Markdown:  markdown,
		Locator:   locator,
	}, nil
}

// List returns the user's report records. Deployments without a metadata
// store always list empty.
func (s *ReportService) List(ctx context.Context, userID, offset, limit int) ([]types.Report, error) {
	if s.reports == nil {
		return []types.Report{}, nil
	}
	return s.reports.ListByUser(ctx, userID, offset, limit)
}

func (s *ReportService) recordMetadata(ctx context.Context, user types.User, locator, fileName string) {
	if s.reports == nil {
		return
	}
	if _, err := s.reports.Create(ctx, types.Report{
		UserID:   user.ID,
		GCSURL:   locator,
		FileName: fileName,
	}); err != nil {
		s.log.Error().Err(err).
			Str("user_id_str", user.UserIDStr).
			Str("locator", locator).
			Msg("report metadata write failed")
	}
}

func (s *ReportService) publishCreated(ctx context.Context, user types.User, locator, fileName string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReportCreated(ctx, events.ReportCreated{
		UserID:    user.ID,
		UserIDStr: user.UserIDStr,
		Locator:   locator,
		FileName:  fileName,
		CreatedAt: time.Now(),
	}); err != nil {
		s.log.Warn().Err(err).
			Str("user_id_str", user.UserIDStr).
			Msg("report.created publish failed")
	}
}
