package entity

import "time"

type CertificateRequestStatus string

const (
	CertificateRequestPending  CertificateRequestStatus = "pending"
	CertificateRequestApproved CertificateRequestStatus = "approved"
	CertificateRequestRejected CertificateRequestStatus = "rejected"
)

// Person is a speaker or committee member listed on a certificate request.
type Person struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type CertificateRequest struct {
	ID              string                   `json:"id" db:"id"`
	EventID         string                   `json:"event_id" db:"event_id"`
	RequestedAt     time.Time                `json:"requested_at" db:"requested_at"`
	Status          CertificateRequestStatus `json:"status" db:"status"`
	Participants    []Participant            `json:"participants" db:"participants"`
	EventSummary    string                   `json:"event_summary" db:"event_summary"`
	Speakers        []Person                 `json:"speakers" db:"speakers"`
	Committee       []Person                 `json:"committee" db:"committee"`
	ProcessedAt     *time.Time               `json:"processed_at,omitempty" db:"processed_at"`
	RejectionReason string                   `json:"rejection_reason,omitempty" db:"rejection_reason"`
	Files           []*EventFile             `json:"files,omitempty"`
}

// CertificateRequestWithEvent is a row of the admin certificate queue.
type CertificateRequestWithEvent struct {
	CertificateRequest
	EventName        string    `json:"event_name"`
	EventResponsible string    `json:"event_responsible"`
	EventProgram     Program   `json:"event_program"`
	EventStartDate   time.Time `json:"event_start_date"`
	EventEndDate     time.Time `json:"event_end_date"`
	EventUserID      string    `json:"event_user_id"`
}
