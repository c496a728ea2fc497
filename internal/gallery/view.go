package gallery

import (
	"sync"

	"ani-canvas-backend/internal/models"
	"ani-canvas-backend/internal/realtime"
)

// View is one viewer's live window onto a gallery: the full sorted collection
// plus the pagination cursor. Snapshots re-sort the whole collection and
// recompute the page count before the current page is sliced out; as a side
// effect each snapshot records the viewer's session against the gallery ref.
// Every change emits the current page on Events.
type View struct {
	mu sync.Mutex

	gallery  models.Gallery
	filter   models.AnimationFilter
	page     int
	pageSize int

	writeSession func(databaseRef string) error

	out    chan realtime.Event
	cancel func()
}

// NewView builds a view over an initial snapshot and, when events is non-nil,
// keeps it current until Close. writeSession may be nil for anonymous viewers.
func NewView(gallery models.Gallery, pageSize int, writeSession func(databaseRef string) error, events <-chan realtime.Event, cancel func()) *View {
	v := &View{
		gallery:      gallery,
		filter:       models.DefaultAnimationFilter(),
		pageSize:     pageSize,
		writeSession: writeSession,
		out:          make(chan realtime.Event, 16),
		cancel:       cancel,
	}

	v.mu.Lock()
	v.applyLocked(gallery)
	v.mu.Unlock()

	if events != nil {
		go func() {
			for event := range events {
				snapshot, ok := event.Value.(models.Gallery)
				if !ok {
					continue
				}
				v.mu.Lock()
				v.applyLocked(snapshot)
				v.mu.Unlock()
			}
		}()
	}

	return v
}

// applyLocked materializes a snapshot: default to an empty collection, apply
// the active sort over the full set, record the viewer session, then emit the
// refreshed page.
func (v *View) applyLocked(snapshot models.Gallery) {
	if snapshot.Animations == nil {
		snapshot.Animations = []models.Animation{}
	}
	SortAnimations(snapshot.Animations, v.filter)
	v.gallery = snapshot

	if v.writeSession != nil {
		v.writeSession(v.gallery.Ref)
	}
	v.emitLocked()
}

func (v *View) pageResponseLocked() models.GalleryPageResponse {
	return models.GalleryPageResponse{
		GalleryID:   v.gallery.ID,
		GalleryRef:  v.gallery.Ref,
		Name:        v.gallery.Name,
		Animations:  PageSlice(v.gallery.Animations, v.page, v.pageSize),
		PageCurrent: v.page,
		PageLast:    PageCount(len(v.gallery.Animations), v.pageSize),
		Filter:      v.filter,
	}
}

func (v *View) emitLocked() {
	event := realtime.Event{
		Type:  realtime.EventSnapshot,
		Path:  v.gallery.Ref,
		Value: v.pageResponseLocked(),
	}
	select {
	case v.out <- event:
	default:
	}
}

// Events delivers one page snapshot per change: the initial state, every live
// gallery update, and every filter or page move.
func (v *View) Events() <-chan realtime.Event {
	return v.out
}

func (v *View) SetFilter(filter models.AnimationFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = filter
	SortAnimations(v.gallery.Animations, v.filter)
	v.emitLocked()
}

func (v *View) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if page < 0 {
		page = 0
	}
	v.page = page
	v.emitLocked()
}

// Page returns the current page's animations from the sorted view.
func (v *View) Page() []models.Animation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return PageSlice(v.gallery.Animations, v.page, v.pageSize)
}

// PageLast is the number of pages over the full collection, at least one.
func (v *View) PageLast() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return PageCount(len(v.gallery.Animations), v.pageSize)
}

// PageResponse is the current page rendered as the gallery page payload.
func (v *View) PageResponse() models.GalleryPageResponse {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pageResponseLocked()
}

func (v *View) Gallery() models.Gallery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gallery
}

// Close releases the live subscription.
func (v *View) Close() {
	if v.cancel != nil {
		v.cancel()
	}
}
