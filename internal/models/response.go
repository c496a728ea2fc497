package models

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type SignUpResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type SignInResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	SessionID    string `json:"session_id"`
}

type OAuthResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Provider         string `json:"provider"`
}

type EmailCheckResponse struct {
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

type GalleryPageResponse struct {
	GalleryID   string          `json:"gallery_id"`
	GalleryRef  string          `json:"gallery_ref"`
	Name        string          `json:"name"`
	Animations  []Animation     `json:"animations"`
	PageCurrent int             `json:"page_current"`
	PageLast    int             `json:"page_last"`
	Filter      AnimationFilter `json:"filter"`
}

type UploadAnimationResponse struct {
	Animation Animation `json:"animation"`
}

type WebhookDestinationsResponse struct {
	Destinations []WebhookDestination `json:"destinations"`
	Current      *WebhookDestination  `json:"current,omitempty"`
}

// FunctionResponse mirrors the callable-endpoint return envelope.
type FunctionResponse struct {
	Data map[string]interface{} `json:"data"`
	Auth *AuthContext           `json:"auth,omitempty"`
}

// AuthContext is the caller identity forwarded through the function dispatcher.
type AuthContext struct {
	UID string `json:"uid"`
}

type ManifestResponse struct {
	ScriptURL string            `json:"script_url,omitempty"`
	Assets    map[string]string `json:"assets,omitempty"`
	Fallback  string            `json:"fallback,omitempty"`
}
