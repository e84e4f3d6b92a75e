package model

type Session struct {
	TokenHash string `json:"-"`
	UserID    string `json:"user_id"`
	Ctime     int64  `json:"ctime"`
	ExpiresAt int64  `json:"expires_at"`
}
