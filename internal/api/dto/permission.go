package dto

import validation "github.com/go-ozzo/ozzo-validation"

// RolesRequest carries role names. Unknown names are accepted and ignored
// by the permission engine. An empty list is valid for a role set replace.
type RolesRequest struct {
	Roles []string `json:"roles"`
}

func (r RolesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Roles, validation.NotNil.Error("roles is required")),
	)
}

type RolesResponse struct {
	AccountID string   `json:"account_id"`
	Roles     []string `json:"roles"`
}
