package models

// UserCreateRequest is the admin payload for provisioning an account of
// any role.
type UserCreateRequest struct {
	Username  string   `json:"username" validate:"required,min=3"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=6"`
	FirstName string   `json:"first_name" validate:"required"`
	LastName  string   `json:"last_name"`
	Role      UserRole `json:"role" validate:"required"`
	SchoolID  *string  `json:"school_id"`
}

// UserUpdateRequest edits an account's profile. Role changes are admin
// only and audited at the route level.
type UserUpdateRequest struct {
	Username  *string   `json:"username" validate:"omitempty,min=3"`
	Email     *string   `json:"email" validate:"omitempty,email"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Role      *UserRole `json:"role"`
	SchoolID  *string   `json:"school_id"`
}
