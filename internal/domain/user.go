package domain

// User is a console account as reported by the admin API.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// UserRef is the slim user entry used by the recordings dropdown.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     Role   `json:"role" validate:"required,oneof=admin 'data analyst' 'business user' viewer"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=admin 'data analyst' 'business user' viewer"`
}

// UserFilter narrows the admin users table. Empty fields are not sent.
type UserFilter struct {
	Page     int    `validate:"gte=1"`
	PerPage  int    `validate:"gte=1,lte=200"`
	ID       string `validate:"omitempty,numeric"`
	Username string `validate:"max=80"`
	Role     string `validate:"omitempty,oneof=admin 'data analyst' 'business user' viewer"`
}

type UserPage struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
}
