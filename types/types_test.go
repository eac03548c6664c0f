package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarHeight(t *testing.T) {
	assert.Equal(t, 260, AvatarHeight(AvatarSmall))
	assert.Equal(t, 360, AvatarHeight(AvatarMedium))
	assert.Equal(t, 460, AvatarHeight(AvatarLarge))
	assert.Equal(t, DefaultAvatarHeight, AvatarHeight("giant"))
	assert.Equal(t, DefaultAvatarHeight, AvatarHeight(""))
}

func TestNormalizeDefaults(t *testing.T) {
	var o RenderOptions
	o.Normalize()
	assert.Equal(t, SubtitleBottom, o.SubtitleStyle)
	assert.Equal(t, 48, o.FontSize)
	assert.Equal(t, AvatarBottomRight, o.AvatarPosition)
	assert.Equal(t, AvatarMedium, o.AvatarSize)
	assert.Equal(t, "business", o.AvatarStyle)
}

func TestNormalizeClampsMusicVolume(t *testing.T) {
	o := RenderOptions{MusicVolume: 2.5}
	o.Normalize()
	assert.Equal(t, 1.0, o.MusicVolume)

	o = RenderOptions{MusicVolume: -0.3}
	o.Normalize()
	assert.Equal(t, 0.0, o.MusicVolume)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	o := RenderOptions{SubtitleStyle: SubtitleTop, FontSize: 30, MusicVolume: 0.4}
	o.Normalize()
	assert.Equal(t, SubtitleTop, o.SubtitleStyle)
	assert.Equal(t, 30, o.FontSize)
	assert.Equal(t, 0.4, o.MusicVolume)
}

func TestDecodeDefaultsOmittedOptions(t *testing.T) {
	var r RenderRequest
	body := `{"options":{"subtitles":true,"background_music":"m.mp3"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &r))

	assert.True(t, r.Options.AutoAIImages)
	assert.Equal(t, 0.1, r.Options.MusicVolume)
	assert.True(t, r.Options.Subtitles)
	assert.Equal(t, "m.mp3", r.Options.BackgroundMusic)
}

func TestDecodeKeepsExplicitOptions(t *testing.T) {
	var o RenderOptions
	body := `{"auto_ai_images":false,"music_volume":0}`
	require.NoError(t, json.Unmarshal([]byte(body), &o))

	assert.False(t, o.AutoAIImages)
	assert.Equal(t, 0.0, o.MusicVolume)
}

func TestValidateRejectsEmptyScenes(t *testing.T) {
	r := RenderRequest{ProjectName: "p"}
	assert.Error(t, r.Validate())
}

func TestValidateFillsDefaults(t *testing.T) {
	r := RenderRequest{Scenes: []Scene{{Text: "a"}, {Text: "b", Duration: 3}}}
	require.NoError(t, r.Validate())

	assert.Equal(t, "video_project", r.ProjectName)
	assert.Equal(t, "scene_1", r.Scenes[0].ID)
	assert.Equal(t, "scene_2", r.Scenes[1].ID)
	assert.Equal(t, 5.0, r.Scenes[0].Duration)
	assert.Equal(t, 3.0, r.Scenes[1].Duration)
	assert.Equal(t, SubtitleBottom, r.Options.SubtitleStyle)
}

func TestValidateKeepsSceneIDs(t *testing.T) {
	r := RenderRequest{Scenes: []Scene{{ID: "intro", Text: "a", Duration: 2}}}
	require.NoError(t, r.Validate())
	assert.Equal(t, "intro", r.Scenes[0].ID)
}
