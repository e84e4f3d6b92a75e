package model

type EmailOTP struct {
	Email     string `json:"email"`
	CodeHash  string `json:"-"`
	ExpiresAt int64  `json:"expires_at"`
	Ctime     int64  `json:"ctime"`
	Mtime     int64  `json:"mtime"`
}
