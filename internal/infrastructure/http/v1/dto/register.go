package dto

import (
	"farmapos/internal/core/types"
	"farmapos/internal/domain/register"
)

// OpenRegisterRequest opens a drawer session.
type OpenRegisterRequest struct {
	OpeningFloat types.Money `json:"openingFloat"`
}

// CloseRegisterRequest closes a session with the counted cash.
type CloseRegisterRequest struct {
	CountedCash types.Money `json:"countedCash"`
}

// RegisterStatusResponse is the open session with its running summary.
type RegisterStatusResponse struct {
	Session *register.Session `json:"session"`
	Summary register.Summary  `json:"summary"`
}
