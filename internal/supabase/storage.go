package supabase

import (
	"bytes"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// AssetKind is the slot an uploaded file belongs to inside an animation bundle.
type AssetKind string

const (
	AssetGif   AssetKind = "gif"
	AssetFla   AssetKind = "fla"
	AssetJs    AssetKind = "js"
	AssetImage AssetKind = "images"
	AssetSound AssetKind = "sounds"
)

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) (*StorageClient, error) {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// AnimationAssetPath builds the deterministic storage path for one asset:
// galleries/{gallery_id}/animations/{animation_id}/{kind}/{filename}
func AnimationAssetPath(galleryID, animationID string, kind AssetKind, filename string) string {
	return fmt.Sprintf("galleries/%s/animations/%s/%s/%s", galleryID, animationID, kind, filename)
}

// Upload stores one animation asset and returns its storage path and a
// publicly resolvable URL.
func (s *StorageClient) Upload(galleryID, animationID string, kind AssetKind, filename, contentType string, data []byte) (string, string, error) {
	storagePath := AnimationAssetPath(galleryID, animationID, kind, filename)

	upsert := true
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload file: %w", err)
	}

	return storagePath, s.PublicURL(storagePath), nil
}

func (s *StorageClient) PublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, storagePath)
}

// PathFromURL reverses PublicURL back into a bucket-relative storage path.
// Returns false if the URL does not point into this client's bucket.
func (s *StorageClient) PathFromURL(publicURL string) (string, bool) {
	prefix := fmt.Sprintf("%s/storage/v1/object/public/%s/", s.baseURL, s.bucket)
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, prefix), true
}

func (s *StorageClient) Delete(storagePath string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{storagePath})
	return err
}

// DeleteByURL removes the object a public URL points at. URLs outside the
// bucket are rejected rather than silently ignored.
func (s *StorageClient) DeleteByURL(publicURL string) error {
	storagePath, ok := s.PathFromURL(publicURL)
	if !ok {
		return fmt.Errorf("url %q is not in bucket %q", publicURL, s.bucket)
	}
	return s.Delete(storagePath)
}

// DeleteAnimationAssets removes every stored object under one animation's
// prefix, tolerating an already-empty prefix.
func (s *StorageClient) DeleteAnimationAssets(galleryID, animationID string) error {
	prefix := fmt.Sprintf("galleries/%s/animations/%s/", galleryID, animationID)

	files, err := s.client.ListFiles(s.bucket, prefix, storage.FileSearchOptions{
		Limit: 1000,
	})
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if len(files) == 0 {
		return nil
	}

	filePaths := make([]string, len(files))
	for i, file := range files {
		filePaths[i] = file.Name
	}
	if _, err := s.client.RemoveFile(s.bucket, filePaths); err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}

	return nil
}
