package model

type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	AvatarURL string `json:"avatarUrl"`
	Role      string `json:"role"`
}

// UserRole is one row of the admin user list.
type UserRole struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
