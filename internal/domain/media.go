package domain

// VoiceGender selects one of the two narration voice profiles.
type VoiceGender string

const (
	VoiceMale   VoiceGender = "male"
	VoiceFemale VoiceGender = "female"
)

// NarrationVoices is the fixed output order of a VoiceAudio pair.
var NarrationVoices = [2]VoiceGender{VoiceMale, VoiceFemale}

// SynthesizedAudio is one narration file.
type SynthesizedAudio struct {
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"duration"`
}

// VoiceAudio holds male then female narration of the same text.
type VoiceAudio struct {
	URLs      [2]string  `json:"urls"`
	Durations [2]float64 `json:"durations"`
}

func NewVoiceAudio(male, female SynthesizedAudio) VoiceAudio {
	return VoiceAudio{
		URLs:      [2]string{male.URL, female.URL},
		Durations: [2]float64{male.DurationSeconds, female.DurationSeconds},
	}
}

// ImageResult is one stock image search hit.
type ImageResult struct {
	Name               string `json:"name"`
	ContentURL         string `json:"contentUrl"`
	HostPageURL        string `json:"hostPageUrl"`
	HostPageDisplayURL string `json:"hostPageDisplayUrl"`
	EncodingFormat     string `json:"encodingFormat"`
	ContentSize        string `json:"contentSize"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	AccentColor        string `json:"accentColor"`
	ImageID            string `json:"imageId"`
}

type VideoSection struct {
	Title        string        `json:"title"`
	TalkingPoint string        `json:"talkingPoint"`
	VoiceAudio   VoiceAudio    `json:"voiceAudio"`
	Images       []ImageResult `json:"images"`
}

type VideoIntro struct {
	TalkingPoint string        `json:"talkingPoint"`
	VoiceAudio   VoiceAudio    `json:"voiceAudio"`
	Images       []ImageResult `json:"images"`
}

type VideoOutro struct {
	TalkingPoint string     `json:"talkingPoint"`
	VoiceAudio   VoiceAudio `json:"voiceAudio"`
}

type VideoTable struct {
	IsPresent  bool       `json:"isPresent"`
	Summary    string     `json:"summary"`
	Table      string     `json:"table"`
	VoiceAudio VoiceAudio `json:"voiceAudio"`
}

// VideoData is the assembled media payload of a finished job.
type VideoData struct {
	VideoSections []VideoSection `json:"videoSections"`
	Intro         VideoIntro     `json:"intro"`
	Outro         VideoOutro     `json:"outro"`
	Table         VideoTable     `json:"table"`
	CoverURL      string         `json:"coverUrl,omitempty"`
}
