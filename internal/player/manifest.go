package player

import "ani-canvas-backend/internal/models"

// Manifest is everything a client player needs to render one animation: the
// generated runtime script, a file-name-to-URL mapping used to patch the
// script's declared asset manifest, and the static preview to fall back to
// when the richer assets are absent.
type Manifest struct {
	ScriptURL string
	Assets    map[string]string
	Fallback  string
}

// BuildManifest maps an animation record to its player manifest.
func BuildManifest(animation models.Animation) Manifest {
	manifest := Manifest{
		ScriptURL: animation.JsURL,
		Fallback:  animation.GifURL,
	}

	if animation.JsURL == "" {
		return manifest
	}

	manifest.Assets = make(map[string]string, len(animation.Images)+len(animation.Sounds))
	for _, asset := range animation.Images {
		manifest.Assets[asset.Name] = asset.URL
	}
	for _, asset := range animation.Sounds {
		manifest.Assets[asset.Name] = asset.URL
	}

	return manifest
}

// Resolve patches one declared asset file name to its uploaded URL, keeping
// the declared name when no upload matches.
func (m Manifest) Resolve(fileName string) string {
	if url, ok := m.Assets[fileName]; ok {
		return url
	}
	return fileName
}

// Renderable reports whether the script-driven player can run; when false the
// client renders the static preview instead.
func (m Manifest) Renderable() bool {
	return m.ScriptURL != ""
}
