package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ani-canvas-backend/internal/models"
	"ani-canvas-backend/internal/realtime"
	"ani-canvas-backend/internal/supabase"
)

// ErrNotFound is returned when a user name does not resolve to exactly one
// user; callers redirect to the default route.
var ErrNotFound = errors.New("gallery not found")

// ErrAssetCollision blocks an upload whose auxiliary asset names would
// silently overwrite shared resources already referenced by the gallery.
var ErrAssetCollision = errors.New("asset name already exists in gallery")

type documentStore interface {
	GetUserByName(name string) (*models.User, error)
	CreateGallery(gallery models.Gallery) error
	GetGallery(galleryID string) (*models.Gallery, error)
	AppendAnimation(galleryID string, animation models.Animation) error
	RemoveAnimation(galleryID, animationID string) error
}

type blobStore interface {
	Upload(galleryID, animationID string, kind supabase.AssetKind, filename, contentType string, data []byte) (string, string, error)
	Delete(storagePath string) error
	DeleteByURL(publicURL string) error
	DeleteAnimationAssets(galleryID, animationID string) error
}

type kvStore interface {
	Set(path string, value interface{}) error
	Get(path string, dest interface{}) error
	Remove(path string) error
	ListPrefix(prefix string) (map[string]json.RawMessage, error)
	Subscribe(path string) (<-chan realtime.Event, func())
}

type notifier interface {
	PostUpload(token, channel, text, imageURL string) (string, error)
	Retract(token, channel, messageTS string) error
}

// UploadFile is one file of an animation bundle handed to Upload.
type UploadFile struct {
	Kind        supabase.AssetKind
	Name        string
	ContentType string
	Data        []byte
}

// Service is the gallery data provider: name resolution, lazy gallery
// creation, the upload/remove workflow over blob storage plus the gallery
// document, and webhook destination management in the realtime store.
type Service struct {
	docs          documentStore
	blobs         blobStore
	kv            kvStore
	notify        notifier
	aniCanvasPath string
	pageSize      int
	logger        *zap.Logger
}

func NewService(docs documentStore, blobs blobStore, kv kvStore, notify notifier, aniCanvasPath string, pageSize int, logger *zap.Logger) *Service {
	return &Service{
		docs:          docs,
		blobs:         blobs,
		kv:            kv,
		notify:        notify,
		aniCanvasPath: aniCanvasPath,
		pageSize:      pageSize,
		logger:        logger,
	}
}

func (s *Service) PageSize() int {
	return s.pageSize
}

func (s *Service) GalleryRef(galleryID string) string {
	return s.aniCanvasPath + "/galleries/" + galleryID
}

// Resolve looks up the unique user whose name equals userName and returns that
// user's gallery. When the name resolves to nobody and the viewer is looking
// at their own name, the gallery is created lazily; otherwise ErrNotFound is
// returned and the caller redirects. A resolved but not-yet-written gallery
// document materializes as an empty collection.
func (s *Service) Resolve(userName string, viewer *models.User) (*models.Gallery, error) {
	owner, err := s.docs.GetUserByName(userName)
	if err != nil {
		if !errors.Is(err, supabase.ErrNotFound) {
			return nil, err
		}
		if viewer == nil || viewer.Name != userName {
			return nil, ErrNotFound
		}
		owner = viewer
	}

	gallery, err := s.docs.GetGallery(owner.ID)
	if err != nil {
		if !errors.Is(err, supabase.ErrNotFound) {
			return nil, err
		}
		if viewer != nil && viewer.ID == owner.ID {
			created := models.NewGallery(owner.ID, s.GalleryRef(owner.ID), owner.Name)
			if err := s.docs.CreateGallery(created); err != nil {
				return nil, fmt.Errorf("failed to init gallery: %w", err)
			}
			return &created, nil
		}
		empty := models.Gallery{
			ID:         owner.ID,
			Ref:        s.GalleryRef(owner.ID),
			Name:       owner.Name,
			Animations: []models.Animation{},
		}
		return &empty, nil
	}

	return gallery, nil
}

// Subscribe opens a live subscription on the gallery document.
func (s *Service) Subscribe(galleryID string) (<-chan realtime.Event, func()) {
	return s.kv.Subscribe(s.GalleryRef(galleryID))
}

// HasCollision reports whether any candidate file name already exists among
// the auxiliary image/sound asset names of the full collection. Uploads that
// would overwrite shared resources are blocked on a true result.
func HasCollision(animations []models.Animation, candidates []string) bool {
	existing := make(map[string]struct{})
	for _, animation := range animations {
		for _, asset := range animation.Images {
			existing[asset.Name] = struct{}{}
		}
		for _, asset := range animation.Sounds {
			existing[asset.Name] = struct{}{}
		}
	}
	for _, name := range candidates {
		if _, ok := existing[name]; ok {
			return true
		}
	}
	return false
}

// Upload stores every file of the bundle, resolves URLs into the animation
// record, optionally posts the chat notification, and appends the completed
// record to the gallery's collection. Any blob failure aborts the whole
// operation and already-uploaded blobs are deleted again; a notification
// failure never prevents the final metadata write.
func (s *Service) Upload(ctx context.Context, gallery *models.Gallery, meta models.Animation, files []UploadFile, destination *models.WebhookDestination) (models.Animation, error) {
	var auxiliary []string
	for _, file := range files {
		if file.Kind == supabase.AssetImage || file.Kind == supabase.AssetSound {
			auxiliary = append(auxiliary, file.Name)
		}
	}
	if HasCollision(gallery.Animations, auxiliary) {
		return meta, ErrAssetCollision
	}

	var mu sync.Mutex
	var uploadedPaths []string

	group, _ := errgroup.WithContext(ctx)
	for _, file := range files {
		group.Go(func() error {
			path, url, err := s.blobs.Upload(gallery.ID, meta.ID, file.Kind, file.Name, file.ContentType, file.Data)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			uploadedPaths = append(uploadedPaths, path)
			switch file.Kind {
			case supabase.AssetGif:
				meta.GifName, meta.GifURL = file.Name, url
			case supabase.AssetFla:
				meta.FlaName, meta.FlaURL = file.Name, url
			case supabase.AssetJs:
				meta.JsName, meta.JsURL = file.Name, url
			case supabase.AssetImage:
				meta.Images = append(meta.Images, models.Asset{Name: file.Name, URL: url})
			case supabase.AssetSound:
				meta.Sounds = append(meta.Sounds, models.Asset{Name: file.Name, URL: url})
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		for _, path := range uploadedPaths {
			if deleteErr := s.blobs.Delete(path); deleteErr != nil {
				s.logger.Warn("failed to clean up uploaded blob",
					zap.String("path", path), zap.Error(deleteErr))
			}
		}
		return meta, fmt.Errorf("failed to upload animation assets: %w", err)
	}

	// The notification is best-effort: the metadata write below must still run
	// when it fails.
	var notifyErr error
	if destination != nil && s.notify != nil {
		ts, err := s.notify.PostUpload(destination.Token, destination.Channel,
			fmt.Sprintf("%s uploaded %q", gallery.Name, meta.Name), meta.GifURL)
		if err != nil {
			notifyErr = err
		} else {
			meta.Notification = &models.Notification{Channel: destination.Channel, MessageTS: ts}
		}
	}

	if err := s.docs.AppendAnimation(gallery.ID, meta); err != nil {
		return meta, err
	}
	if notifyErr != nil {
		s.logger.Warn("upload notification failed", zap.String("animation_id", meta.ID), zap.Error(notifyErr))
	}

	return meta, nil
}

// Remove deletes every blob the record references (missing blobs are
// tolerated), retracts any delivered notification best-effort, then removes
// the record from the gallery's collection.
func (s *Service) Remove(ctx context.Context, gallery *models.Gallery, meta models.Animation) error {
	var urls []string
	for _, url := range []string{meta.GifURL, meta.FlaURL, meta.JsURL} {
		if url != "" {
			urls = append(urls, url)
		}
	}
	for _, asset := range meta.Images {
		urls = append(urls, asset.URL)
	}
	for _, asset := range meta.Sounds {
		urls = append(urls, asset.URL)
	}

	group, _ := errgroup.WithContext(ctx)
	for _, url := range urls {
		group.Go(func() error {
			if err := s.blobs.DeleteByURL(url); err != nil {
				s.logger.Warn("failed to delete animation blob", zap.String("url", url), zap.Error(err))
			}
			return nil
		})
	}
	group.Wait()

	// Sweep the animation's storage prefix for anything the record no longer
	// references, such as assets left behind by an upsert.
	if err := s.blobs.DeleteAnimationAssets(gallery.ID, meta.ID); err != nil {
		s.logger.Warn("failed to sweep animation storage prefix",
			zap.String("animation_id", meta.ID), zap.Error(err))
	}

	if meta.Notification != nil && s.notify != nil {
		destination, err := s.CurrentDestination(gallery.ID)
		token := ""
		if err == nil && destination != nil {
			token = destination.Token
		}
		if err := s.notify.Retract(token, meta.Notification.Channel, meta.Notification.MessageTS); err != nil {
			s.logger.Warn("failed to retract upload notification",
				zap.String("animation_id", meta.ID), zap.Error(err))
		}
	}

	return s.docs.RemoveAnimation(gallery.ID, meta.ID)
}

func (s *Service) webhookPath(galleryID string) string {
	return s.GalleryRef(galleryID) + "/webhooks"
}

func (s *Service) currentWebhookPath(galleryID string) string {
	return s.GalleryRef(galleryID) + "/webhookCurrent"
}

func (s *Service) AddDestination(galleryID string, destination models.WebhookDestination) error {
	if err := s.kv.Set(s.webhookPath(galleryID)+"/"+destination.Channel, destination); err != nil {
		return err
	}
	return s.publishDestinations(galleryID)
}

func (s *Service) RemoveDestination(galleryID, channel string) error {
	if err := s.kv.Remove(s.webhookPath(galleryID) + "/" + channel); err != nil {
		return err
	}
	return s.publishDestinations(galleryID)
}

// publishDestinations materializes the destination list at the list path so
// list-level subscribers see every membership change.
func (s *Service) publishDestinations(galleryID string) error {
	destinations, err := s.ListDestinations(galleryID)
	if err != nil {
		return err
	}
	return s.kv.Set(s.webhookPath(galleryID), destinations)
}

func (s *Service) SetCurrentDestination(galleryID string, destination models.WebhookDestination) error {
	return s.kv.Set(s.currentWebhookPath(galleryID), destination)
}

// CurrentDestination returns the gallery's selected webhook destination, or
// nil when none is configured.
func (s *Service) CurrentDestination(galleryID string) (*models.WebhookDestination, error) {
	var destination models.WebhookDestination
	err := s.kv.Get(s.currentWebhookPath(galleryID), &destination)
	if errors.Is(err, supabase.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &destination, nil
}

func (s *Service) ListDestinations(galleryID string) ([]models.WebhookDestination, error) {
	raw, err := s.kv.ListPrefix(s.webhookPath(galleryID))
	if err != nil {
		return nil, err
	}

	destinations := make([]models.WebhookDestination, 0, len(raw))
	for key, encoded := range raw {
		var destination models.WebhookDestination
		if err := json.Unmarshal(encoded, &destination); err != nil {
			return nil, fmt.Errorf("failed to unmarshal webhook destination %s: %w", key, err)
		}
		destinations = append(destinations, destination)
	}
	return destinations, nil
}

// SubscribeDestinations feeds destination list changes back into the caller's
// state; SubscribeCurrent does the same for the selection.
func (s *Service) SubscribeDestinations(galleryID string) (<-chan realtime.Event, func()) {
	return s.kv.Subscribe(s.webhookPath(galleryID))
}

func (s *Service) SubscribeCurrent(galleryID string) (<-chan realtime.Event, func()) {
	return s.kv.Subscribe(s.currentWebhookPath(galleryID))
}
