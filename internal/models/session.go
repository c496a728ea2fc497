package models

// Session is the ephemeral presence row recording which gallery a browser tab
// is currently viewing. It is written on each gallery view and removed on
// sign-out or when the backing connection drops. Not used for authentication.
type Session struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	CurrentDatabaseRef string `json:"currentDatabaseRef"`
}
