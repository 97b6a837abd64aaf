package dto

import (
	"time"

	"github.com/campushq/attendance-api/internal/models"
)

// CorrectionCreateRequest proposes a change to an existing mark.
type CorrectionCreateRequest struct {
	SessionID uint   `json:"session_id" validate:"required,gt=0"`
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	ToMark    string `json:"to_mark" validate:"required,oneof=present absent late excused"`
	Reason    string `json:"reason" validate:"required,min=3,max=512"`
}

// CorrectionDecideRequest finalizes a pending correction.
type CorrectionDecideRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected cancelled"`
	Note     string `json:"note" validate:"omitempty,max=512"`
}

// CorrectionListQuery filters correction listings.
type CorrectionListQuery struct {
	SessionID uint   `query:"session_id"`
	StudentID uint   `query:"student_id"`
	Status    string `query:"status" validate:"omitempty,oneof=pending approved rejected cancelled"`
	Page      int    `query:"page" validate:"omitempty,gte=1"`
	PageSize  int    `query:"page_size" validate:"omitempty,gte=1,lte=200"`
}

// CorrectionResponse is the public shape of a correction request.
type CorrectionResponse struct {
	ID           uint       `json:"id"`
	SessionID    uint       `json:"session_id"`
	StudentID    uint       `json:"student_id"`
	FromMark     string     `json:"from_mark"`
	ToMark       string     `json:"to_mark"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	RequestedBy  uint       `json:"requested_by"`
	DecidedBy    *uint      `json:"decided_by"`
	DecidedAt    *time.Time `json:"decided_at"`
	DecisionNote string     `json:"decision_note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewCorrectionResponse maps a correction model to its response shape.
func NewCorrectionResponse(request models.AttendanceCorrectionRequest) CorrectionResponse {
	return CorrectionResponse{
		ID:           request.ID,
		SessionID:    request.SessionID,
		StudentID:    request.StudentID,
		FromMark:     string(request.FromMark),
		ToMark:       string(request.ToMark),
		Reason:       request.Reason,
		Status:       string(request.Status),
		RequestedBy:  request.RequestedBy,
		DecidedBy:    request.DecidedBy,
		DecidedAt:    request.DecidedAt,
		DecisionNote: request.DecisionNote,
		CreatedAt:    request.CreatedAt,
	}
}

// NewCorrectionResponseSlice maps a slice of corrections.
func NewCorrectionResponseSlice(requests []models.AttendanceCorrectionRequest) []CorrectionResponse {
	responses := make([]CorrectionResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, NewCorrectionResponse(request))
	}
	return responses
}
