package types

import (
	"encoding/json"
	"fmt"
)

// Scene is one narrated segment of the output video, supplied per render
// request. Duration is a lower bound: the assembler extends it to cover the
// synthesized narration plus a fixed pad.
type Scene struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	BackgroundPath string  `json:"background_path,omitempty"`
	Duration       float64 `json:"duration"`
	VoiceID        string  `json:"voice_id,omitempty"`
	ImagePrompt    string  `json:"image_prompt,omitempty"`
}

// SubtitleStyle selects the vertical anchor for caption overlays.
type SubtitleStyle string

const (
	SubtitleTop    SubtitleStyle = "top"
	SubtitleCenter SubtitleStyle = "center"
	SubtitleBottom SubtitleStyle = "bottom"
)

// AvatarPosition is the corner the presenter is docked to.
type AvatarPosition string

const (
	AvatarBottomRight AvatarPosition = "bottom-right"
	AvatarBottomLeft  AvatarPosition = "bottom-left"
	AvatarTopRight    AvatarPosition = "top-right"
	AvatarTopLeft     AvatarPosition = "top-left"
)

// AvatarSize is a height preset for the composited presenter.
type AvatarSize string

const (
	AvatarSmall  AvatarSize = "small"
	AvatarMedium AvatarSize = "medium"
	AvatarLarge  AvatarSize = "large"
)

// AvatarSizeHeights maps size presets to pixel heights on the canvas.
var AvatarSizeHeights = map[AvatarSize]int{
	AvatarSmall:  260,
	AvatarMedium: 360,
	AvatarLarge:  460,
}

// DefaultAvatarHeight is used when the preset is unknown.
const DefaultAvatarHeight = 280

// AvatarHeight resolves a size preset to pixels.
func AvatarHeight(size AvatarSize) int {
	if h, ok := AvatarSizeHeights[size]; ok {
		return h
	}
	return DefaultAvatarHeight
}

// RenderOptions are the per-request flags of one render.
type RenderOptions struct {
	AutoAIImages    bool           `json:"auto_ai_images"`
	Subtitles       bool           `json:"subtitles"`
	SubtitleStyle   SubtitleStyle  `json:"subtitle_style"`
	FontSize        int            `json:"font_size"`
	UsePremiumVoice bool           `json:"use_premium_voice"`
	BackgroundMusic string         `json:"background_music,omitempty"`
	MusicVolume     float64        `json:"music_volume"`
	UseAvatar       bool           `json:"use_avatar"`
	AvatarPosition  AvatarPosition `json:"avatar_position"`
	AvatarSize      AvatarSize     `json:"avatar_size"`
	AvatarStyle     string         `json:"avatar_style"`
}

// UnmarshalJSON applies request-level defaults that differ from the zero
// value: auto AI images are on and background music plays at 0.1 unless the
// request says otherwise. Explicit false and 0 are kept as sent.
func (o *RenderOptions) UnmarshalJSON(data []byte) error {
	type plain RenderOptions
	aux := struct {
		AutoAIImages *bool    `json:"auto_ai_images"`
		MusicVolume  *float64 `json:"music_volume"`
		*plain
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.AutoAIImages = aux.AutoAIImages == nil || *aux.AutoAIImages
	if aux.MusicVolume == nil {
		o.MusicVolume = 0.1
	} else {
		o.MusicVolume = *aux.MusicVolume
	}
	return nil
}

// RenderRequest is immutable for the duration of one render.
type RenderRequest struct {
	ProjectName string        `json:"project_name"`
	Scenes      []Scene       `json:"scenes"`
	Options     RenderOptions `json:"options"`
}

// Normalize fills defaults so the pipeline never branches on zero values.
func (o *RenderOptions) Normalize() {
	if o.SubtitleStyle == "" {
		o.SubtitleStyle = SubtitleBottom
	}
	if o.FontSize <= 0 {
		o.FontSize = 48
	}
	if o.MusicVolume < 0 {
		o.MusicVolume = 0
	}
	if o.MusicVolume > 1 {
		o.MusicVolume = 1
	}
	if o.AvatarPosition == "" {
		o.AvatarPosition = AvatarBottomRight
	}
	if o.AvatarSize == "" {
		o.AvatarSize = AvatarMedium
	}
	if o.AvatarStyle == "" {
		o.AvatarStyle = "business"
	}
}

// Validate rejects a request before any pipeline work begins.
func (r *RenderRequest) Validate() error {
	if r.ProjectName == "" {
		r.ProjectName = "video_project"
	}
	if len(r.Scenes) == 0 {
		return fmt.Errorf("render request has no scenes")
	}
	for i := range r.Scenes {
		if r.Scenes[i].ID == "" {
			r.Scenes[i].ID = fmt.Sprintf("scene_%d", i+1)
		}
		if r.Scenes[i].Duration <= 0 {
			r.Scenes[i].Duration = 5.0
		}
	}
	r.Options.Normalize()
	return nil
}

// Capabilities is the provider-availability snapshot built once at startup
// and passed into the pipeline, so tests can inject a fixed set.
type Capabilities struct {
	PremiumVoice bool `json:"premium_voice"`
	ImageGen     bool `json:"image_gen"`
	ScriptGen    bool `json:"script_gen"`
	StockSearch  bool `json:"stock_search"`
}

// Voice is one entry in the premium provider's voice catalog.
type Voice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}
