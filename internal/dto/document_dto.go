package dto

import (
	"io"

	"ai-docguard-be/internal/entity"
)

const (
	IntakeStatusSuccess  = "success"
	IntakeStatusRejected = "rejected"
)

// IntakeRequest is built by the controller from the multipart form.
type IntakeRequest struct {
	SessionId string `validate:"omitempty,len=36,uuid,lowercase"`
	FileName  string `validate:"required,max=255"`
	Size      int64  `validate:"gt=0"`
	File      io.Reader
}

type IntakeResponse struct {
	Status    string             `json:"status"`
	SessionId string             `json:"sessionId"`
	Report    *entity.ScanReport `json:"report"`
	Summary   string             `json:"summary"`
	Rejected  bool               `json:"-"`
}

type RejectedIntakeResponse struct {
	Code      int                `json:"code"`
	Kind      string             `json:"kind"`
	Message   string             `json:"message"`
	SessionId string             `json:"sessionId"`
	Report    *entity.ScanReport `json:"report"`
}

type SessionResponse struct {
	SessionId string              `json:"sessionId"`
	State     entity.SessionState `json:"state"`
	Report    *entity.ScanReport  `json:"report,omitempty"`
	Summary   *string             `json:"summary,omitempty"`
}
