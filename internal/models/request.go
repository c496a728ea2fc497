package models

type SignUpRequest struct {
	Email           string `json:"email" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

type PasswordUpdateRequest struct {
	Password string `json:"password" binding:"required"`
}

type WebhookDestinationRequest struct {
	Channel string `json:"channel" binding:"required"`
	Token   string `json:"token"`
	Name    string `json:"name"`
}

// FunctionRequest is the callable-endpoint envelope: caller payload plus the
// environment the caller resolved its function versions from.
type FunctionRequest struct {
	Env    FunctionEnv            `json:"env"`
	Params map[string]interface{} `json:"params"`
}

type FunctionEnv struct {
	FunctionVersions map[string]string `json:"FUNCTION_V"`
	SharePath        string            `json:"SHARE_PATH"`
}
