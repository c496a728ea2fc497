package models

import (
	"time"

	"github.com/google/uuid"
)

// Asset is one named slot of an animation bundle: the original file name plus
// a publicly resolvable URL in blob storage.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Notification records a delivered chat-webhook message so it can be
// retracted when the animation is removed.
type Notification struct {
	Channel   string `json:"channel"`
	MessageTS string `json:"messageTs"`
}

// Animation is one uploaded asset bundle plus display metadata. GifName/GifURL
// hold the raster preview, FlaName/FlaURL the authoring-tool source, JsName/JsURL
// the optional generated runtime script, and Images/Sounds the shared auxiliary
// assets referenced by the script.
type Animation struct {
	ID           string        `json:"id"`
	CreatedAt    int64         `json:"createdAt"`
	Name         string        `json:"name"`
	GifName      string        `json:"gifName"`
	GifURL       string        `json:"gifUrl"`
	FlaName      string        `json:"flaName"`
	FlaURL       string        `json:"flaUrl"`
	JsName       string        `json:"jsName"`
	JsURL        string        `json:"jsUrl"`
	Images       []Asset       `json:"images"`
	Sounds       []Asset       `json:"sounds"`
	Notification *Notification `json:"notification,omitempty"`
}

func NewAnimation(name string) Animation {
	return Animation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UnixMilli(),
		Name:      name,
		Images:    []Asset{},
		Sounds:    []Asset{},
	}
}

// SortDirection is the tri-state direction of one sort field.
type SortDirection string

const (
	SortAscending  SortDirection = "ASCENDING"
	SortDescending SortDirection = "DESCENDING"
	SortNone       SortDirection = "NONE"
)

// AnimationFilter holds the active sort directions. CreatedAt takes priority
// over Name when both are active.
type AnimationFilter struct {
	CreatedAt SortDirection `json:"createdAt"`
	Name      SortDirection `json:"name"`
}

func DefaultAnimationFilter() AnimationFilter {
	return AnimationFilter{
		CreatedAt: SortDescending,
		Name:      SortNone,
	}
}
