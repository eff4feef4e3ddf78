package identity

import (
	"time"

	"github.com/google/uuid"
)

// UserResponse never carries PasswordHash — the wire shape for a User
// everywhere one is returned to a client.
type UserResponse struct {
	ID                uuid.UUID  `json:"id"`
	CompanyID         uuid.UUID  `json:"company_id"`
	PrimaryFunctionID *uuid.UUID `json:"primary_function_id,omitempty"`
	Email             string     `json:"email"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Role              Role       `json:"role"`
	IsActive          bool       `json:"is_active"`
	EmailVerified     bool       `json:"email_verified"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func MapUserToResponse(u *User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		CompanyID:         u.CompanyID,
		PrimaryFunctionID: u.PrimaryFunctionID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Role:              u.Role,
		IsActive:          u.IsActive,
		EmailVerified:     u.EmailVerified,
		LastLoginAt:       u.LastLoginAt,
		CreatedAt:         u.CreatedAt,
	}
}

func mapUsersToResponse(users []User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = MapUserToResponse(&u)
	}
	return out
}

type UpdateUserRequest struct {
	FirstName         string     `json:"first_name" binding:"required"`
	LastName          string     `json:"last_name" binding:"required"`
	PrimaryFunctionID *uuid.UUID `json:"primary_function_id"`
}

type CompanyResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

func mapCompanyToResponse(c *Company) CompanyResponse {
	return CompanyResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

type CreateCompanyRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

type UpdateCompanyRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

type FunctionResponse struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
}

func mapFunctionToResponse(fn *Function) FunctionResponse {
	return FunctionResponse{ID: fn.ID, CompanyID: fn.CompanyID, Name: fn.Name, Code: fn.Code}
}

type CreateFunctionRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

type UpdateFunctionRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

type TeamResponse struct {
	ID         uuid.UUID `json:"id"`
	CompanyID  uuid.UUID `json:"company_id"`
	FunctionID uuid.UUID `json:"function_id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
}

func mapTeamToResponse(t *Team) TeamResponse {
	return TeamResponse{ID: t.ID, CompanyID: t.CompanyID, FunctionID: t.FunctionID, Name: t.Name, Code: t.Code}
}

type CreateTeamRequest struct {
	FunctionID uuid.UUID `json:"function_id" binding:"required"`
	Name       string    `json:"name" binding:"required"`
	Code       string    `json:"code" binding:"required"`
}

type UpdateTeamRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

// TeamMemberRequest is the body of AddTeamMember and AssignTeamManager;
// RemoveTeamMember and RemoveTeamManager take the user from the path.
type TeamMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}
