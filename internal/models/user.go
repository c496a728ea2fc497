package models

// User is the profile document written on first successful authentication.
// Its ID doubles as the owning Gallery's ID.
type User struct {
	ID        string `json:"id"`
	Ref       string `json:"ref"`
	CreatedAt int64  `json:"createdAt"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}
