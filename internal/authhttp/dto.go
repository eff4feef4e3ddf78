// Package authhttp is the HTTP-facing orchestration layer over
// identity.Service, session.Service, and tokencodec.Codec: it issues
// and rotates tokens, applies the login RateGate and lockout latch, and
// writes audit events for every lifecycle action that must be audited.
// Grounded on internal/auth's cookie shape and Login/RefreshToken
// orchestration, split out from identity/session because those two
// packages model domain state, not the request/response cycle a login
// flow needs.
package authhttp

import "github.com/google/uuid"

type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type RequestPasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ConfirmPasswordResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type CreateInviteRequest struct {
	Email      string      `json:"email" binding:"required,email"`
	FunctionID *uuid.UUID  `json:"function_id"`
	TeamIDs    []uuid.UUID `json:"team_ids"`
	Role       string      `json:"role" binding:"required,oneof=admin manager user"`
}

type AcceptInviteRequest struct {
	Token     string `json:"token" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type inviteResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	RoleToGrant string    `json:"role_to_grant"`
}
