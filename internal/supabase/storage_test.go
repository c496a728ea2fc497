package supabase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ani-canvas-backend/internal/supabase"
)

func TestAnimationAssetPath(t *testing.T) {
	path := supabase.AnimationAssetPath("gallery-1", "anim-1", supabase.AssetGif, "preview.gif")
	assert.Equal(t, "galleries/gallery-1/animations/anim-1/gif/preview.gif", path)

	path = supabase.AnimationAssetPath("gallery-1", "anim-1", supabase.AssetImage, "sheet.png")
	assert.Equal(t, "galleries/gallery-1/animations/anim-1/images/sheet.png", path)

	path = supabase.AnimationAssetPath("gallery-1", "anim-1", supabase.AssetSound, "pop.mp3")
	assert.Equal(t, "galleries/gallery-1/animations/anim-1/sounds/pop.mp3", path)
}

func TestPublicURLAndPathFromURLRoundTrip(t *testing.T) {
	client, err := supabase.NewStorageClient("https://project.supabase.co/", "service-role-key", "ani-canvas")
	require.NoError(t, err)

	storagePath := supabase.AnimationAssetPath("gallery-1", "anim-1", supabase.AssetFla, "source.fla")
	url := client.PublicURL(storagePath)
	assert.Equal(t, "https://project.supabase.co/storage/v1/object/public/ani-canvas/galleries/gallery-1/animations/anim-1/fla/source.fla", url)

	recovered, ok := client.PathFromURL(url)
	require.True(t, ok)
	assert.Equal(t, storagePath, recovered)
}

func TestPathFromURL_RejectsForeignURLs(t *testing.T) {
	client, err := supabase.NewStorageClient("https://project.supabase.co", "service-role-key", "ani-canvas")
	require.NoError(t, err)

	_, ok := client.PathFromURL("https://elsewhere.example.com/storage/v1/object/public/ani-canvas/some/path")
	assert.False(t, ok)

	_, ok = client.PathFromURL("https://project.supabase.co/storage/v1/object/public/other-bucket/some/path")
	assert.False(t, ok)
}
