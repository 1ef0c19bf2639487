package services

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/gcp"
	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/media/audio"
	"github.com/thecmdrunner/swiftube-backend/internal/observability"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/envutil"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

const durationMetadataKey = "duration_seconds"

// VoiceSet maps each narration gender to a fixed voice profile.
type VoiceSet map[domain.VoiceGender]gcp.VoiceProfile

var voiceSets = map[string]VoiceSet{
	"en-US": {
		domain.VoiceMale:   {Name: "en-US-Standard-D", LanguageCode: "en-US", Pitch: 1, SpeakingRate: 1},
		domain.VoiceFemale: {Name: "en-US-Standard-F", LanguageCode: "en-US", Pitch: 0.2, SpeakingRate: 1},
	},
	"en-IN": {
		domain.VoiceMale:   {Name: "en-IN-Standard-C", LanguageCode: "en-IN", Pitch: 0.4, SpeakingRate: 0.89},
		domain.VoiceFemale: {Name: "en-IN-Standard-D", LanguageCode: "en-IN", Pitch: 0, SpeakingRate: 0.89},
	},
}

// LoadVoiceSet picks NARRATION_VOICE_SET (default en-US). NARRATION_VOICES_YAML
// may point at a file whose male/female entries replace the chosen profiles.
func LoadVoiceSet() (VoiceSet, error) {
	name := envutil.String("NARRATION_VOICE_SET", "en-US")
	base, ok := voiceSets[name]
	if !ok {
		return nil, fmt.Errorf("unknown NARRATION_VOICE_SET %q", name)
	}
	set := VoiceSet{}
	for g, v := range base {
		set[g] = v
	}

	path := envutil.String("NARRATION_VOICES_YAML", "")
	if path == "" {
		return set, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voices yaml: %w", err)
	}
	var override map[domain.VoiceGender]gcp.VoiceProfile
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return nil, fmt.Errorf("parse voices yaml: %w", err)
	}
	for g, v := range override {
		if strings.TrimSpace(v.Name) == "" || strings.TrimSpace(v.LanguageCode) == "" {
			return nil, fmt.Errorf("voice %q needs name and language_code", g)
		}
		set[g] = v
	}
	return set, nil
}

type NarrationService interface {
	// Narrate returns the stored clip for text in voice gender under dir,
	// synthesizing and uploading it only when no clip exists yet.
	Narrate(ctx context.Context, text string, gender domain.VoiceGender, dir string) (domain.SynthesizedAudio, error)
}

type narrationService struct {
	log     *logger.Logger
	tts     gcp.TextToSpeech
	bucket  gcp.BucketService
	voices  VoiceSet
	metrics *observability.Metrics
}

func NewNarrationService(baseLog *logger.Logger, tts gcp.TextToSpeech, bucket gcp.BucketService, voices VoiceSet, metrics *observability.Metrics) NarrationService {
	return &narrationService{
		log:     baseLog.With("service", "NarrationService"),
		tts:     tts,
		bucket:  bucket,
		voices:  voices,
		metrics: metrics,
	}
}

// NarrationKey is "<dir>/<voice>-<md5(text)>.wav".
func NarrationKey(dir, voiceName, text string) string {
	sum := md5.Sum([]byte(text))
	return strings.TrimRight(dir, "/") + "/" + voiceName + "-" + hex.EncodeToString(sum[:]) + ".wav"
}

func (s *narrationService) Narrate(ctx context.Context, text string, gender domain.VoiceGender, dir string) (domain.SynthesizedAudio, error) {
	if strings.TrimSpace(text) == "" {
		return domain.SynthesizedAudio{}, fmt.Errorf("narration text is empty")
	}
	voice, ok := s.voices[gender]
	if !ok {
		return domain.SynthesizedAudio{}, fmt.Errorf("no voice profile for %q", gender)
	}
	key := NarrationKey(dir, voice.Name, text)

	attrs, err := s.bucket.GetObjectAttrs(ctx, key)
	switch {
	case err == nil:
		s.metrics.IncMediaCall("tts", "cache_hit")
		return domain.SynthesizedAudio{
			URL:             s.bucket.GetPublicURL(key),
			DurationSeconds: storedDuration(attrs),
		}, nil
	case !errors.Is(err, gcp.ErrObjectNotFound):
		// The lookup is only a cache; a failing read falls through to synthesis.
		s.log.Warn("narration cache lookup failed", "key", key, "error", err)
	}

	wav, err := s.tts.Synthesize(ctx, text, voice)
	if err != nil {
		s.metrics.IncMediaCall("tts", "error")
		return domain.SynthesizedAudio{}, fmt.Errorf("synthesize %s: %w", gender, err)
	}
	s.metrics.IncMediaCall("tts", "ok")

	duration := audio.DurationOrFallback(wav)
	meta := map[string]string{durationMetadataKey: strconv.FormatFloat(duration, 'f', 3, 64)}
	if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(wav), meta); err != nil {
		s.metrics.IncMediaCall("upload", "error")
		return domain.SynthesizedAudio{}, fmt.Errorf("upload narration: %w", err)
	}
	s.metrics.IncMediaCall("upload", "ok")

	return domain.SynthesizedAudio{URL: s.bucket.GetPublicURL(key), DurationSeconds: duration}, nil
}

func storedDuration(attrs *gcp.ObjectAttrs) float64 {
	if attrs == nil {
		return audio.FallbackDurationSeconds
	}
	raw := strings.TrimSpace(attrs.Metadata[durationMetadataKey])
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil || d <= 0 {
		return audio.FallbackDurationSeconds
	}
	return d
}
