// Package validation holds the predicates that gate wizard steps, submission
// and review decisions. Every rule is a pure function of its inputs.
package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

const DefaultMinLeadDays = 21

// Rule names, used as stable identifiers in API responses.
const (
	RuleNameRequired              = "name_required"
	RulePhoneRequired             = "phone_required"
	RuleOrganizersRequired        = "organizers_required"
	RuleProgramDetailsRequired    = "program_details_required"
	RuleVenueRequiredUnlessOnline = "venue_required_unless_online"
	RuleMinimumLeadTime           = "minimum_lead_time"
	RuleStartDateRequired         = "start_date_required"
	RuleEndDateRequired           = "end_date_required"
	RuleEndNotBeforeStart         = "end_not_before_start"
	RuleCodigosNonNegative        = "codigos_non_negative"
	RuleCostBlocksProgression     = "cost_flagged_blocks_progression"
	RuleAuthorizationRequired     = "authorization_required"
	RuleRejectionReasonRequired   = "rejection_reason_required"
	RuleProgramValue              = "program_value"
	RuleEventTypeValue            = "event_type_value"
	RuleClassificationValue       = "classification_value"
	RuleModalityValue             = "modality_value"
)

// Result is the outcome of one rule. An advisory result stops progression
// without being a data error.
type Result struct {
	Rule     string `json:"rule"`
	Passed   bool   `json:"passed"`
	Advisory bool   `json:"advisory,omitempty"`
	Message  string `json:"message,omitempty"`
}

func pass(rule string) Result {
	return Result{Rule: rule, Passed: true}
}

func fail(rule, msg string) Result {
	return Result{Rule: rule, Message: msg}
}

func advise(rule, msg string) Result {
	return Result{Rule: rule, Advisory: true, Message: msg}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func required(rule, value, msg string) Result {
	if blank(value) {
		return fail(rule, msg)
	}
	return pass(rule)
}

func NameRequired(name string) Result {
	return required(RuleNameRequired, name, "El nombre del evento es requerido")
}

func PhoneRequired(phone string) Result {
	return required(RulePhoneRequired, phone, "El teléfono es requerido")
}

func OrganizersRequired(organizers string) Result {
	return required(RuleOrganizersRequired, organizers, "Los organizadores son requeridos")
}

func ProgramDetailsRequired(details string) Result {
	return required(RuleProgramDetailsRequired, details, "El programa detallado es requerido")
}

func VenueRequiredUnlessOnline(modality entity.Modality, venue string) Result {
	if modality != entity.ModalityOnline && blank(venue) {
		return fail(RuleVenueRequiredUnlessOnline, "La sede es requerida para eventos presenciales o mixtos")
	}
	return pass(RuleVenueRequiredUnlessOnline)
}

// MinimumLeadTime passes when start is at least minDays*24h after now.
// The boundary is inclusive.
func MinimumLeadTime(start, now time.Time, minDays int) Result {
	if start.IsZero() {
		return fail(RuleStartDateRequired, "La fecha de inicio es requerida")
	}
	lead := time.Duration(minDays) * 24 * time.Hour
	if start.Sub(now) < lead {
		return fail(RuleMinimumLeadTime,
			fmt.Sprintf("El evento debe registrarse con al menos %d días de anticipación", minDays))
	}
	return pass(RuleMinimumLeadTime)
}

func EndNotBeforeStart(start, end time.Time) Result {
	if end.IsZero() {
		return fail(RuleEndDateRequired, "La fecha de fin es requerida")
	}
	if end.Before(start) {
		return fail(RuleEndNotBeforeStart, "La fecha de fin no puede ser anterior a la fecha de inicio")
	}
	return pass(RuleEndNotBeforeStart)
}

func CodigosNonNegative(n int) Result {
	if n < 0 {
		return fail(RuleCodigosNonNegative, "El número de códigos no puede ser negativo")
	}
	return pass(RuleCodigosNonNegative)
}

// oneOf checks a closed-set field. A blank value passes only when optional
// is set, which lets incomplete drafts be saved.
func oneOf(rule, field, value string, valid, optional bool) Result {
	switch {
	case valid:
		return pass(rule)
	case blank(value):
		if optional {
			return pass(rule)
		}
		return fail(rule, fmt.Sprintf("El campo %s es requerido", field))
	default:
		return fail(rule, fmt.Sprintf("El valor %q no es válido para %s", value, field))
	}
}

func ProgramAllowed(p entity.Program, optional bool) Result {
	return oneOf(RuleProgramValue, "programa", string(p), p.Valid(), optional)
}

func EventTypeAllowed(t entity.EventType, optional bool) Result {
	return oneOf(RuleEventTypeValue, "tipo de evento", string(t), t.Valid(), optional)
}

func ClassificationAllowed(c entity.Classification, optional bool) Result {
	return oneOf(RuleClassificationValue, "clasificación", string(c), c.Valid(), optional)
}

func ModalityAllowed(m entity.Modality, optional bool) Result {
	return oneOf(RuleModalityValue, "modalidad", string(m), m.Valid(), optional)
}

// CostFlaggedBlocksProgression holds an event with a cost for manual follow-up
// by the financial office.
func CostFlaggedBlocksProgression(hasCost bool) Result {
	if hasCost {
		return advise(RuleCostBlocksProgression,
			"Los eventos con costo requieren atención del departamento de finanzas. Comunícate con la oficina de finanzas antes de continuar")
	}
	return pass(RuleCostBlocksProgression)
}

func AuthorizationRequired(isAuthorized bool) Result {
	if !isAuthorized {
		return advise(RuleAuthorizationRequired,
			"Debes contar con la autorización de la dirección de la facultad para registrar el evento")
	}
	return pass(RuleAuthorizationRequired)
}

// RejectionReasonRequired applies only to reject decisions.
func RejectionReasonRequired(action entity.DecisionAction, reason string) Result {
	if action == entity.DecisionReject && blank(reason) {
		return fail(RuleRejectionReasonRequired, "El motivo de rechazo es requerido")
	}
	return pass(RuleRejectionReasonRequired)
}
