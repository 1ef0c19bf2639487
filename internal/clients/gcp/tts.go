package gcp

import (
	"context"
	"fmt"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/thecmdrunner/swiftube-backend/internal/platform/httpx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

const effectsProfile = "large-home-entertainment-class-device"

// VoiceProfile is a fixed narration voice.
type VoiceProfile struct {
	Name         string  `yaml:"name"`
	LanguageCode string  `yaml:"language_code"`
	Pitch        float64 `yaml:"pitch"`
	SpeakingRate float64 `yaml:"speaking_rate"`
}

// TextToSpeech synthesizes LINEAR16 (WAV) audio.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)
	Close() error
}

type textToSpeechService struct {
	log        *logger.Logger
	client     *texttospeech.Client
	maxRetries int
}

func NewTextToSpeech(log *logger.Logger) (TextToSpeech, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := texttospeech.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech client: %w", err)
	}
	return &textToSpeechService{
		log:        log.With("service", "gcp.TextToSpeech"),
		client:     c,
		maxRetries: 3,
	}, nil
}

func (s *textToSpeechService) Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			Name:         voice.Name,
			LanguageCode: voice.LanguageCode,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:    texttospeechpb.AudioEncoding_LINEAR16,
			EffectsProfileId: []string{effectsProfile},
			Pitch:            voice.Pitch,
			SpeakingRate:     voice.SpeakingRate,
		},
	}

	backoff := 750 * time.Millisecond
	var last error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		resp, err := s.client.SynthesizeSpeech(ctx, req)
		if err == nil {
			return resp.GetAudioContent(), nil
		}
		last = err
		if !isRetryableGRPC(err) || attempt == s.maxRetries {
			break
		}
		s.log.Warn("SynthesizeSpeech retrying",
			"voice", voice.Name,
			"attempt", attempt+1,
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, fmt.Errorf("synthesize speech (%s): %w", voice.Name, last)
}

func (s *textToSpeechService) Close() error {
	return s.client.Close()
}

func isRetryableGRPC(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
