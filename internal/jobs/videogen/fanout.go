package videogen

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/observability"
)

const DefaultImagesPerSearch = 3

// Narrator produces one stored narration clip. services.NarrationService
// satisfies it.
type Narrator interface {
	Narrate(ctx context.Context, text string, gender domain.VoiceGender, dir string) (domain.SynthesizedAudio, error)
}

// ImageSearcher finds stock images. The fan-out expects it to admit one call
// at a time; imagesearch.Sequential does that.
type ImageSearcher interface {
	Search(ctx context.Context, query string, count int) ([]domain.ImageResult, error)
}

// MediaFanOut turns script text into narration pairs and section images.
type MediaFanOut struct {
	narrator   Narrator
	images     ImageSearcher
	imageCount int
	metrics    *observability.Metrics
}

func NewMediaFanOut(narrator Narrator, images ImageSearcher, imageCount int, metrics *observability.Metrics) *MediaFanOut {
	if imageCount <= 0 {
		imageCount = DefaultImagesPerSearch
	}
	return &MediaFanOut{narrator: narrator, images: images, imageCount: imageCount, metrics: metrics}
}

// Voices narrates text with the male and female profiles at the same time.
func (f *MediaFanOut) Voices(ctx context.Context, text, dir string) (domain.VoiceAudio, error) {
	var clips [2]domain.SynthesizedAudio
	g, gctx := errgroup.WithContext(ctx)
	for i, gender := range domain.NarrationVoices {
		goSafe(g, func() error {
			clip, err := f.narrator.Narrate(gctx, text, gender, dir)
			if err != nil {
				return domain.NewExternalError("narration", err)
			}
			clips[i] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.VoiceAudio{}, err
	}
	return domain.NewVoiceAudio(clips[0], clips[1]), nil
}

// Images runs one search for query.
func (f *MediaFanOut) Images(ctx context.Context, query string) ([]domain.ImageResult, error) {
	imgs, err := f.images.Search(ctx, query, f.imageCount)
	if err != nil {
		f.metrics.IncMediaCall("image_search", "error")
		return nil, domain.NewExternalError("image_search", fmt.Errorf("search %q: %w", query, err))
	}
	f.metrics.IncMediaCall("image_search", "ok")
	if imgs == nil {
		imgs = []domain.ImageResult{}
	}
	return imgs, nil
}

// Sections builds one VideoSection per talking point. Narration for all
// sections runs concurrently while the title image searches run one after
// another; the two phases overlap and are zipped back by index.
func (f *MediaFanOut) Sections(ctx context.Context, titles, talkingPoints []string, dir string) ([]domain.VideoSection, error) {
	if len(titles) != len(talkingPoints) {
		return nil, domain.NewValidationError("sections",
			fmt.Errorf("%d titles for %d talking points", len(titles), len(talkingPoints)))
	}
	voices := make([]domain.VoiceAudio, len(talkingPoints))
	images := make([][]domain.ImageResult, len(titles))

	g, gctx := errgroup.WithContext(ctx)
	for i := range talkingPoints {
		goSafe(g, func() error {
			va, err := f.Voices(gctx, titles[i]+". "+talkingPoints[i], dir)
			if err != nil {
				return err
			}
			voices[i] = va
			return nil
		})
	}
	goSafe(g, func() error {
		for i, title := range titles {
			imgs, err := f.Images(gctx, title)
			if err != nil {
				return err
			}
			images[i] = imgs
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sections := make([]domain.VideoSection, len(talkingPoints))
	for i := range talkingPoints {
		sections[i] = domain.VideoSection{
			Title:        titles[i],
			TalkingPoint: talkingPoints[i],
			VoiceAudio:   voices[i],
			Images:       images[i],
		}
	}
	return sections, nil
}
