package entity

import (
	"time"
)

type EventStatus string

const (
	EventStatusDraft    EventStatus = "borrador"
	EventStatusInReview EventStatus = "en_revision"
	EventStatusApproved EventStatus = "aprobado"
	EventStatusRejected EventStatus = "rechazado"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusInReview, EventStatusApproved, EventStatusRejected:
		return true
	}
	return false
}

type CertificateStatus string

const (
	CertificateStatusNotRequested CertificateStatus = "sin_solicitar"
	CertificateStatusRequested    CertificateStatus = "solicitadas"
	CertificateStatusIssued       CertificateStatus = "emitidas"
)

type Program string

const (
	ProgramMedico     Program = "Médico"
	ProgramPsicologia Program = "Psicología"
	ProgramNutricion  Program = "Nutrición"
	ProgramPosgrado   Program = "Posgrado"
)

func (p Program) Valid() bool {
	switch p {
	case ProgramMedico, ProgramPsicologia, ProgramNutricion, ProgramPosgrado:
		return true
	}
	return false
}

type EventType string

const (
	EventTypeAcademico EventType = "Académico"
	EventTypeCultural  EventType = "Cultural"
	EventTypeDeportivo EventType = "Deportivo"
	EventTypeSalud     EventType = "Salud"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeAcademico, EventTypeCultural, EventTypeDeportivo, EventTypeSalud:
		return true
	}
	return false
}

type Classification string

const (
	ClassificationConferencia Classification = "Conferencia"
	ClassificationSeminario   Classification = "Seminario"
	ClassificationTaller      Classification = "Taller"
	ClassificationOtro        Classification = "Otro"
)

func (c Classification) Valid() bool {
	switch c {
	case ClassificationConferencia, ClassificationSeminario, ClassificationTaller, ClassificationOtro:
		return true
	}
	return false
}

type Modality string

const (
	ModalityPresencial Modality = "Presencial"
	ModalityOnline     Modality = "En línea"
	ModalityMixta      Modality = "Mixta"
)

func (m Modality) Valid() bool {
	switch m {
	case ModalityPresencial, ModalityOnline, ModalityMixta:
		return true
	}
	return false
}

// EventData holds every organizer-editable field of an event, with dates
// already normalized to absolute instants.
type EventData struct {
	Name                string         `json:"name"`
	Responsible         string         `json:"responsible,omitempty"`
	Email               string         `json:"email,omitempty"`
	Phone               string         `json:"phone"`
	Program             Program        `json:"program"`
	Type                EventType      `json:"type"`
	Classification      Classification `json:"classification"`
	ClassificationOther string         `json:"classification_other,omitempty"`
	Modality            Modality       `json:"modality"`
	Venue               string         `json:"venue"`
	StartDate           time.Time      `json:"start_date"`
	EndDate             time.Time      `json:"end_date"`
	HasCost             bool           `json:"has_cost"`
	CostDetails         string         `json:"cost_details,omitempty"`
	OnlineInfo          string         `json:"online_info,omitempty"`
	Organizers          string         `json:"organizers"`
	Observations        string         `json:"observations,omitempty"`
	ProgramDetails      string         `json:"program_details"`
	SpeakerCvs          string         `json:"speaker_cvs"`
	CodigosRequeridos   int            `json:"codigos_requeridos"`
}

type Event struct {
	ID string `json:"id" db:"id"`
	EventData

	Status            EventStatus       `json:"status" db:"status"`
	CertificateStatus CertificateStatus `json:"certificate_status" db:"certificate_status"`
	AdminComments     string            `json:"admin_comments,omitempty" db:"admin_comments"`
	RejectionReason   string            `json:"rejection_reason,omitempty" db:"rejection_reason"`
	UserID            string            `json:"user_id" db:"user_id"`
	OwnerEmail        string            `json:"owner_email,omitempty" db:"owner_email"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// OrganizerAddress is where organizer-facing notices go: the contact email
// on the event, or the owner's account email when none was given.
func (e *Event) OrganizerAddress() string {
	if e.Email != "" {
		return e.Email
	}
	return e.OwnerEmail
}

// EventDraft is the wizard-side view of an event. Dates are wall-clock values
// as typed by the organizer; IsAuthorized is a workflow gate and is never stored
// with the event.
type EventDraft struct {
	Name                string         `json:"name"`
	Responsible         string         `json:"responsible,omitempty"`
	Email               string         `json:"email,omitempty"`
	Phone               string         `json:"phone"`
	Program             Program        `json:"program"`
	Type                EventType      `json:"type"`
	Classification      Classification `json:"classification"`
	ClassificationOther string         `json:"classification_other,omitempty"`
	Modality            Modality       `json:"modality"`
	Venue               string         `json:"venue"`
	StartDate           CivilTime      `json:"start_date"`
	EndDate             CivilTime      `json:"end_date"`
	HasCost             bool           `json:"has_cost"`
	CostDetails         string         `json:"cost_details,omitempty"`
	OnlineInfo          string         `json:"online_info,omitempty"`
	Organizers          string         `json:"organizers"`
	Observations        string         `json:"observations,omitempty"`
	ProgramDetails      string         `json:"program_details"`
	SpeakerCvs          string         `json:"speaker_cvs"`
	CodigosRequeridos   int            `json:"codigos_requeridos"`
	IsAuthorized        bool           `json:"is_authorized"`
}

// NewEventDraft returns the defaults the registration form starts from.
func NewEventDraft() EventDraft {
	return EventDraft{
		Program:        ProgramMedico,
		Type:           EventTypeAcademico,
		Classification: ClassificationConferencia,
		Modality:       ModalityPresencial,
	}
}

// EventFilter narrows event listings. Zero values mean "no filter".
type EventFilter struct {
	UserID    string      `json:"user_id,omitempty"`
	Status    EventStatus `json:"status,omitempty"`
	Program   Program     `json:"program,omitempty"`
	Search    string      `json:"search,omitempty"`
	StartFrom time.Time   `json:"start_from,omitempty"`
	StartTo   time.Time   `json:"start_to,omitempty"`
	SortAsc   bool        `json:"sort_asc,omitempty"`
	Page      int         `json:"page,omitempty"`
	Limit     int         `json:"limit,omitempty"`
}

type EventPage struct {
	Events  []*Event `json:"events"`
	Total   int      `json:"total"`
	HasMore bool     `json:"has_more"`
}
