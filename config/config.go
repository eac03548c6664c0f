package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Video    VideoConfig    `yaml:"video"`
	TTS      TTSConfig      `yaml:"tts"`
	ImageGen ImageGenConfig `yaml:"image_gen"`
	Avatar   AvatarConfig   `yaml:"avatar"`
	LipSync  LipSyncConfig  `yaml:"lip_sync"`
	Paths    PathsConfig    `yaml:"paths"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type VideoConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	FPS          int     `yaml:"fps"`
	CRF          int     `yaml:"crf"`
	Preset       string  `yaml:"preset"`
	Bitrate      string  `yaml:"bitrate"`
	AudioBitrate string  `yaml:"audio_bitrate"`
	Threads      int     `yaml:"threads"`
	ScenePadSec  float64 `yaml:"scene_pad_sec"`
}

type TTSConfig struct {
	// Command is the offline fallback synthesizer binary. espeak-ng gets
	// "-w out text" args, anything else the generic "--text/--output" pair.
	Command      string `yaml:"command"`
	PremiumModel string `yaml:"premium_model"`
	DefaultVoice string `yaml:"default_voice"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

type ImageGenConfig struct {
	MaxRetries int     `yaml:"max_retries"`
	TimeoutSec int     `yaml:"timeout_sec"`
	Guidance   float64 `yaml:"guidance"`
	Steps      int     `yaml:"steps"`
}

type AvatarConfig struct {
	PortraitMale   string `yaml:"portrait_male"`
	PortraitFemale string `yaml:"portrait_female"`
	SubtitleMargin int    `yaml:"subtitle_margin"`
}

type LipSyncConfig struct {
	Command    string `yaml:"command"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type PathsConfig struct {
	Uploads         string `yaml:"uploads"`
	Outputs         string `yaml:"outputs"`
	GeneratedImages string `yaml:"generated_images"`
	GeneratedAudio  string `yaml:"generated_audio"`
	MusicCache      string `yaml:"music_cache"`
	Temp            string `yaml:"temp"`
	Cache           string `yaml:"cache"`
	Database        string `yaml:"database"`
}

// AlphaMaskDir is where content-addressed avatar masks are persisted.
func (p PathsConfig) AlphaMaskDir() string {
	return filepath.Join(p.Cache, "alpha_masks")
}

// VoicesCacheFile is the persisted voice-catalog JSON.
func (p PathsConfig) VoicesCacheFile() string {
	return filepath.Join(p.Cache, "voices.json")
}

// All returns every directory the pipeline expects to exist.
func (p PathsConfig) All() []string {
	return []string{
		p.Uploads, p.Outputs, p.GeneratedImages, p.GeneratedAudio,
		p.MusicCache, p.Temp, p.Cache, p.AlphaMaskDir(),
	}
}

// Default returns the built-in configuration, matching the HD 720p profile
// the service renders at.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":5001"},
		Video: VideoConfig{
			Width:        1280,
			Height:       720,
			FPS:          25,
			CRF:          20,
			Preset:       "medium",
			Bitrate:      "3500k",
			AudioBitrate: "192k",
			Threads:      4,
			ScenePadSec:  0.5,
		},
		TTS: TTSConfig{
			Command:      "espeak-ng",
			PremiumModel: "eleven_turbo_v2",
			DefaultVoice: "21m00Tcm4TlvDq8ikWAM",
			TimeoutSec:   60,
		},
		ImageGen: ImageGenConfig{
			MaxRetries: 3,
			TimeoutSec: 120,
			Guidance:   7.5,
			Steps:      25,
		},
		Avatar: AvatarConfig{
			PortraitMale:   "assets/avatars/presenter_photo.png",
			PortraitFemale: "assets/avatars/presenter_photo_female.png",
			SubtitleMargin: 25,
		},
		LipSync: LipSyncConfig{
			Command:    "wav2lip",
			TimeoutSec: 300,
		},
		Paths: PathsConfig{
			Uploads:         "uploads",
			Outputs:         "outputs",
			GeneratedImages: "generated_images",
			GeneratedAudio:  "generated_audio",
			MusicCache:      "music_cache",
			Temp:            "temp",
			Cache:           "cache",
			Database:        "cache/renders.db",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error: the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Portrait returns the presenter image for an avatar style. Female styles
// map to the female portrait, everything else to the male one.
func (c *Config) Portrait(style string) string {
	switch style {
	case "female", "female_business", "female_casual":
		return c.Avatar.PortraitFemale
	default:
		return c.Avatar.PortraitMale
	}
}
