package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ani-canvas-backend/internal/auth"
	"ani-canvas-backend/internal/gallery"
	"ani-canvas-backend/internal/middleware"
	"ani-canvas-backend/internal/models"
	"ani-canvas-backend/internal/player"
	"ani-canvas-backend/internal/realtime"
	"ani-canvas-backend/internal/supabase"
)

type userStore interface {
	GetUser(userID string) (*models.User, error)
}

type GalleryHandler struct {
	galleryService *gallery.Service
	authService    *auth.Service
	docs           userStore
	hub            *realtime.Hub
}

func NewGalleryHandler(galleryService *gallery.Service, authService *auth.Service, docs userStore, hub *realtime.Hub) *GalleryHandler {
	return &GalleryHandler{
		galleryService: galleryService,
		authService:    authService,
		docs:           docs,
		hub:            hub,
	}
}

// viewer returns the authenticated viewer's profile, or nil for anonymous
// requests.
func (h *GalleryHandler) viewer(c *gin.Context) *models.User {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		return nil
	}
	user, err := h.docs.GetUser(userID)
	if err != nil {
		return nil
	}
	return user
}

func filterFromQuery(c *gin.Context) models.AnimationFilter {
	filter := models.DefaultAnimationFilter()
	if v := c.Query("sort_created_at"); v != "" {
		filter.CreatedAt = models.SortDirection(v)
	}
	if v := c.Query("sort_name"); v != "" {
		filter.Name = models.SortDirection(v)
	}
	return filter
}

// GetGallery resolves a user name, sorts the full collection, recomputes the
// page count, and returns the requested page. A signed-in viewer's session is
// recorded against the gallery as a side effect.
func (h *GalleryHandler) GetGallery(c *gin.Context) {
	userName := c.Param("user_name")
	viewer := h.viewer(c)

	resolved, err := h.galleryService.Resolve(userName, viewer)
	if err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "gallery not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to resolve gallery", Message: err.Error()})
		return
	}

	view, sessionErr := h.newView(c, resolved, viewer, nil, nil)
	if sessionErr != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to record session", Message: sessionErr.Error()})
		return
	}

	c.JSON(http.StatusOK, view.PageResponse())
}

// newView builds the viewer's window onto a resolved gallery, applying the
// request's filter and page and recording the session per snapshot. The
// returned error is the initial session write's failure, if any.
func (h *GalleryHandler) newView(c *gin.Context, resolved *models.Gallery, viewer *models.User, events <-chan realtime.Event, cancel func()) (*gallery.View, error) {
	var sessionErr error
	var writeSession func(databaseRef string) error
	if viewer != nil {
		writeSession = func(databaseRef string) error {
			err := h.authService.SetSession(viewer, databaseRef)
			if err != nil && sessionErr == nil {
				sessionErr = err
			}
			return err
		}
	}

	view := gallery.NewView(*resolved, h.galleryService.PageSize(), writeSession, events, cancel)
	view.SetFilter(filterFromQuery(c))
	if page, _ := strconv.Atoi(c.DefaultQuery("page", "0")); page > 0 {
		view.SetPage(page)
	}
	return view, sessionErr
}

// Events streams live gallery snapshots over a websocket until the viewer
// navigates away.
func (h *GalleryHandler) Events(c *gin.Context) {
	userName := c.Param("user_name")
	viewer := h.viewer(c)

	resolved, err := h.galleryService.Resolve(userName, viewer)
	if err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "gallery not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to resolve gallery", Message: err.Error()})
		return
	}

	events, cancel := h.galleryService.Subscribe(resolved.ID)
	view, sessionErr := h.newView(c, resolved, viewer, events, cancel)
	if sessionErr != nil {
		view.Close()
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to record session", Message: sessionErr.Error()})
		return
	}

	h.hub.StreamWS(c.Writer, c.Request, nil, view.Events(), view.Close)

	if viewer != nil {
		h.authService.HandleDisconnect(viewer.ID)
	}
}

func readUploadFile(header *multipart.FileHeader, kind supabase.AssetKind) (gallery.UploadFile, error) {
	file, err := header.Open()
	if err != nil {
		return gallery.UploadFile{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return gallery.UploadFile{}, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return gallery.UploadFile{
		Kind:        kind,
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// ownGallery resolves the gallery named in the route and rejects viewers who
// do not own it. A nil return means the response has been written.
func (h *GalleryHandler) ownGallery(c *gin.Context, viewer *models.User) *models.Gallery {
	userName := c.Param("user_name")
	resolved, err := h.galleryService.Resolve(userName, viewer)
	if err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "gallery not found"})
			return nil
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to resolve gallery", Message: err.Error()})
		return nil
	}
	if resolved.ID != viewer.ID {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "gallery belongs to another user"})
		return nil
	}
	return resolved
}

// Upload accepts one animation bundle as multipart form data: required gif
// and fla files, an optional js runtime script, and any number of shared
// images and sounds.
func (h *GalleryHandler) Upload(c *gin.Context) {
	viewer := h.viewer(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user not found"})
		return
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to parse multipart form", Message: err.Error()})
		return
	}
	form := c.Request.MultipartForm
	if form == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to parse multipart form", Message: "multipart form is nil"})
		return
	}

	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "name is required"})
		return
	}

	var files []gallery.UploadFile
	required := []struct {
		field string
		kind  supabase.AssetKind
	}{
		{"gif", supabase.AssetGif},
		{"fla", supabase.AssetFla},
	}
	for _, slot := range required {
		headers := form.File[slot.field]
		if len(headers) == 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: slot.field + " file is required"})
			return
		}
		file, err := readUploadFile(headers[0], slot.kind)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read " + slot.field + " file", Message: err.Error()})
			return
		}
		files = append(files, file)
	}

	if headers := form.File["js"]; len(headers) > 0 {
		file, err := readUploadFile(headers[0], supabase.AssetJs)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read js file", Message: err.Error()})
			return
		}
		files = append(files, file)
	}
	for _, header := range form.File["images"] {
		file, err := readUploadFile(header, supabase.AssetImage)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read image file", Message: err.Error()})
			return
		}
		files = append(files, file)
	}
	for _, header := range form.File["sounds"] {
		file, err := readUploadFile(header, supabase.AssetSound)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read sound file", Message: err.Error()})
			return
		}
		files = append(files, file)
	}

	resolved := h.ownGallery(c, viewer)
	if resolved == nil {
		return
	}

	destination, err := h.galleryService.CurrentDestination(resolved.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load webhook destination", Message: err.Error()})
		return
	}

	meta := models.NewAnimation(name)
	uploaded, err := h.galleryService.Upload(c.Request.Context(), resolved, meta, files, destination)
	if err != nil {
		if errors.Is(err, gallery.ErrAssetCollision) {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to upload animation", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.UploadAnimationResponse{Animation: uploaded})
}

// Remove deletes an animation's blobs, retracts its notification, and removes
// the record from the viewer's gallery.
func (h *GalleryHandler) Remove(c *gin.Context) {
	viewer := h.viewer(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user not found"})
		return
	}

	animationID := c.Param("animation_id")

	resolved := h.ownGallery(c, viewer)
	if resolved == nil {
		return
	}

	var meta *models.Animation
	for i := range resolved.Animations {
		if resolved.Animations[i].ID == animationID {
			meta = &resolved.Animations[i]
			break
		}
	}
	if meta == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "animation not found"})
		return
	}

	if err := h.galleryService.Remove(c.Request.Context(), resolved, *meta); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to remove animation", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// Manifest returns the player manifest for one animation: the runtime script
// URL, the asset-name-to-URL mapping, and the static preview fallback.
func (h *GalleryHandler) Manifest(c *gin.Context) {
	userName := c.Param("user_name")
	animationID := c.Param("animation_id")

	resolved, err := h.galleryService.Resolve(userName, h.viewer(c))
	if err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "gallery not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to resolve gallery", Message: err.Error()})
		return
	}

	for _, animation := range resolved.Animations {
		if animation.ID == animationID {
			manifest := player.BuildManifest(animation)
			c.JSON(http.StatusOK, models.ManifestResponse{
				ScriptURL: manifest.ScriptURL,
				Assets:    manifest.Assets,
				Fallback:  manifest.Fallback,
			})
			return
		}
	}

	c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "animation not found"})
}
