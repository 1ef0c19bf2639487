package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/openai"
	"github.com/thecmdrunner/swiftube-backend/internal/data/repos"
	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/apierr"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/dbctx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
	"github.com/thecmdrunner/swiftube-backend/internal/prompts"
)

const maxBatchGet = 100

// Moderator screens a prompt before any generation runs.
type Moderator interface {
	Moderate(ctx context.Context, input string) (openai.ModerationResult, error)
}

// JobNotifier is told when a job became runnable so a worker can pick it up
// without waiting for its next poll.
type JobNotifier interface {
	Wake()
}

type VideoServiceConfig struct {
	// FlaggedMessage is stored as the job error when moderation flags a prompt.
	FlaggedMessage  string
	MinPromptLength int
}

type VideoService interface {
	// Create admits a new job for userID, spending one credit.
	Create(dbc dbctx.Context, userID, prompt, referenceData string) (*domain.VideoJob, error)
	// Start moves an INITIALIZED, PENDING or FAILED job to IN_PROGRESS after
	// moderation, or to FLAGGED when moderation rejects the prompt.
	Start(dbc dbctx.Context, videoID, userID string) (*domain.VideoJob, error)
	Get(dbc dbctx.Context, videoID string) (*domain.VideoJob, error)
	GetMany(dbc dbctx.Context, videoIDs []string) ([]*domain.VideoJob, error)
}

type videoService struct {
	log       *logger.Logger
	jobs      repos.VideoJobRepo
	ledger    CreditLedger
	moderator Moderator
	prompts   prompts.Source
	notifier  JobNotifier
	cfg       VideoServiceConfig
	now       func() time.Time
}

func NewVideoService(
	baseLog *logger.Logger,
	jobs repos.VideoJobRepo,
	ledger CreditLedger,
	moderator Moderator,
	promptSource prompts.Source,
	notifier JobNotifier,
	cfg VideoServiceConfig,
) VideoService {
	if strings.TrimSpace(cfg.FlaggedMessage) == "" {
		cfg.FlaggedMessage = domain.ErrModerationFlagged.Error()
	}
	if cfg.MinPromptLength <= 0 {
		cfg.MinPromptLength = 3
	}
	return &videoService{
		log:       baseLog.With("service", "VideoService"),
		jobs:      jobs,
		ledger:    ledger,
		moderator: moderator,
		prompts:   promptSource,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

// VideoIDFor is the hex SHA-256 of seed.
func VideoIDFor(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func (s *videoService) Create(dbc dbctx.Context, userID, prompt, referenceData string) (*domain.VideoJob, error) {
	userID = strings.TrimSpace(userID)
	prompt = strings.TrimSpace(prompt)
	if userID == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_user_id", errors.New("userId is required"))
	}
	if len(prompt) < s.cfg.MinPromptLength {
		return nil, apierr.New(http.StatusBadRequest, "invalid_prompt",
			fmt.Errorf("prompt must be at least %d characters", s.cfg.MinPromptLength))
	}

	if _, err := s.ledger.EnsureCustomer(dbc, userID); err != nil {
		return nil, err
	}

	videoID := VideoIDFor(userID + "|" + prompt + "|" + referenceData + "|" + strconv.FormatInt(s.now().UnixNano(), 10))
	credit, err := s.ledger.Admit(dbc, videoID, userID)
	if err != nil {
		if domain.KindOf(err) == domain.KindAdmissionDenied {
			return nil, apierr.New(http.StatusForbidden, "admission_denied", err).WithMessage(domain.Cause(err).Error())
		}
		return nil, err
	}

	job := domain.NewVideoJob(videoID, userID, prompt, referenceData, credit)
	if err := s.jobs.Create(dbc, job); err != nil {
		// The credit is already spent; the ledger entry names this videoId.
		s.log.Error("video job insert failed after admission", "video_id", videoID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("create video job: %w", err)
	}
	s.log.Info("video job created", "video_id", videoID, "user_id", userID, "credit", credit)
	return job, nil
}

func (s *videoService) Start(dbc dbctx.Context, videoID, userID string) (*domain.VideoJob, error) {
	job, err := s.jobs.GetByID(dbc, videoID)
	if errors.Is(err, repos.ErrVideoNotFound) {
		return nil, apierr.New(http.StatusNotFound, "video_not_found", err)
	}
	if err != nil {
		return nil, err
	}
	if userID != "" && job.UserID != userID {
		return nil, apierr.New(http.StatusForbidden, "video_not_owned", errors.New("video belongs to another user"))
	}
	if !job.Status.CanStart() {
		return nil, apierr.New(http.StatusBadRequest, "start_rejected", &domain.StartRejectedError{Status: job.Status})
	}

	if err := s.moderate(dbc, job); err != nil {
		return nil, err
	}

	ok, err := s.jobs.UpdateFieldsIfStatus(dbc, job.ID, startableStatuses, map[string]interface{}{
		"status":       string(domain.VideoStatusInProgress),
		"message":      domain.MsgInProgress,
		"error":        nil,
		"stage":        "queued",
		"locked_at":    nil,
		"heartbeat_at": nil,
	})
	if err != nil {
		return nil, fmt.Errorf("mark in progress: %w", err)
	}
	if !ok {
		return nil, s.rejectWithCurrentStatus(dbc, job.ID)
	}
	job.Status = domain.VideoStatusInProgress
	job.Message = domain.MsgInProgress
	job.Error = nil

	s.log.Info("video job started", "video_id", job.ID, "user_id", job.UserID)
	if s.notifier != nil {
		s.notifier.Wake()
	}
	return job, nil
}

var startableStatuses = []domain.VideoStatus{
	domain.VideoStatusPending,
	domain.VideoStatusInitialized,
	domain.VideoStatusFailed,
}

// moderate screens the rendered metadata prompt, which is the exact text the
// first generation call would send.
func (s *videoService) moderate(dbc dbctx.Context, job *domain.VideoJob) error {
	tmpl, err := s.prompts.Get(dbc.Ctx, prompts.MetadataUser)
	if err != nil {
		return fmt.Errorf("load moderation prompt: %w", err)
	}
	input := prompts.Render(tmpl, map[string]string{"prompt": job.Prompt})

	res, err := s.moderator.Moderate(dbc.Ctx, input)
	if err != nil {
		return apierr.New(http.StatusBadGateway, "moderation_unavailable", domain.NewExternalError("moderation", err))
	}
	if !res.Flagged {
		return nil
	}

	flagged := s.cfg.FlaggedMessage
	ok, err := s.jobs.UpdateFieldsIfStatus(dbc, job.ID, startableStatuses, map[string]interface{}{
		"status":  string(domain.VideoStatusFlagged),
		"message": domain.MsgErrorOccurred,
		"error":   flagged,
	})
	if err != nil {
		return fmt.Errorf("mark flagged: %w", err)
	}
	if !ok {
		return s.rejectWithCurrentStatus(dbc, job.ID)
	}
	if err := s.ledger.RecordRedFlag(dbc, job.UserID); err != nil {
		s.log.Warn("could not record red flag", "user_id", job.UserID, "error", err)
	}
	s.log.Warn("prompt flagged by moderation", "video_id", job.ID, "user_id", job.UserID)

	return apierr.New(http.StatusBadRequest, "prompt_flagged", &domain.PipelineError{
		Kind:  domain.KindModeration,
		Stage: "moderation",
		Err:   errors.New(flagged),
	}).WithMessage(flagged)
}

func (s *videoService) rejectWithCurrentStatus(dbc dbctx.Context, videoID string) error {
	current, err := s.jobs.GetByID(dbc, videoID)
	if err != nil {
		return err
	}
	return apierr.New(http.StatusBadRequest, "start_rejected", &domain.StartRejectedError{Status: current.Status})
}

func (s *videoService) Get(dbc dbctx.Context, videoID string) (*domain.VideoJob, error) {
	job, err := s.jobs.GetByID(dbc, strings.TrimSpace(videoID))
	if errors.Is(err, repos.ErrVideoNotFound) {
		return nil, apierr.New(http.StatusNotFound, "video_not_found", err)
	}
	return job, err
}

func (s *videoService) GetMany(dbc dbctx.Context, videoIDs []string) ([]*domain.VideoJob, error) {
	if len(videoIDs) > maxBatchGet {
		return nil, apierr.New(http.StatusBadRequest, "too_many_ids",
			fmt.Errorf("at most %d ids per request", maxBatchGet))
	}
	return s.jobs.GetByIDs(dbc, videoIDs)
}
