package model

type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PasswordHash   string `json:"-"`
	Phone          string `json:"phone"`
	Birthday       string `json:"birthday"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	ProfilePicture string `json:"profilePicture"`
	PasswordMtime  int64  `json:"passwordLastUpdated"`
	Ctime          int64  `json:"createdAt"`
	Mtime          int64  `json:"updatedAt"`
}

// Redacted returns a copy safe to hand to callers outside the repository.
func (u *User) Redacted() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp
}

// ProfilePatch holds the optional profile fields of an update. Nil fields are
// left untouched.
type ProfilePatch struct {
	Name     *string
	Phone    *string
	Birthday *string
	Gender   *string
	Address  *string
}

func (p ProfilePatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 5)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Birthday != nil {
		cols["birthday"] = *p.Birthday
	}
	if p.Gender != nil {
		cols["gender"] = *p.Gender
	}
	if p.Address != nil {
		cols["address"] = *p.Address
	}
	return cols
}
