package models

import "time"

// Gallery is a user's collection of animations. Its ID always equals the
// owning user's ID; the Animations field is unordered in storage and sorted
// client-side on every snapshot.
type Gallery struct {
	ID         string      `json:"id"`
	Ref        string      `json:"ref"`
	CreatedAt  int64       `json:"createdAt"`
	Name       string      `json:"name"`
	Animations []Animation `json:"animations"`
}

func NewGallery(id, ref, name string) Gallery {
	return Gallery{
		ID:         id,
		Ref:        ref,
		CreatedAt:  time.Now().UnixMilli(),
		Name:       name,
		Animations: []Animation{},
	}
}
