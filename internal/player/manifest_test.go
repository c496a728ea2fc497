package player_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ani-canvas-backend/internal/models"
	"ani-canvas-backend/internal/player"
)

func scriptedAnimation() models.Animation {
	return models.Animation{
		ID:      "anim-1",
		Name:    "dancing cat",
		GifName: "preview.gif",
		GifURL:  "https://blob.test/preview.gif",
		JsName:  "runtime.js",
		JsURL:   "https://blob.test/runtime.js",
		Images: []models.Asset{
			{Name: "sheet.png", URL: "https://blob.test/sheet.png"},
		},
		Sounds: []models.Asset{
			{Name: "pop.mp3", URL: "https://blob.test/pop.mp3"},
		},
	}
}

func TestBuildManifest_ScriptedAnimation(t *testing.T) {
	manifest := player.BuildManifest(scriptedAnimation())

	assert.True(t, manifest.Renderable())
	assert.Equal(t, "https://blob.test/runtime.js", manifest.ScriptURL)
	assert.Equal(t, "https://blob.test/preview.gif", manifest.Fallback)
	assert.Equal(t, "https://blob.test/sheet.png", manifest.Assets["sheet.png"])
	assert.Equal(t, "https://blob.test/pop.mp3", manifest.Assets["pop.mp3"])
}

func TestBuildManifest_GifOnlyFallsBackToPreview(t *testing.T) {
	animation := models.Animation{
		ID:      "anim-2",
		GifName: "preview.gif",
		GifURL:  "https://blob.test/preview.gif",
	}

	manifest := player.BuildManifest(animation)

	assert.False(t, manifest.Renderable())
	assert.Empty(t, manifest.ScriptURL)
	assert.Nil(t, manifest.Assets)
	assert.Equal(t, "https://blob.test/preview.gif", manifest.Fallback)
}

func TestResolve_PatchesDeclaredNamesToUploadedURLs(t *testing.T) {
	manifest := player.BuildManifest(scriptedAnimation())

	assert.Equal(t, "https://blob.test/sheet.png", manifest.Resolve("sheet.png"))
	assert.Equal(t, "unknown.png", manifest.Resolve("unknown.png"), "unmatched names pass through")
}
