package workflow

import (
	"github.com/ds124wfegd/uabc-events/internal/entity"
)

type CertificateAction string

const (
	CertificateRequest   CertificateAction = "request"
	CertificateRerequest CertificateAction = "rerequest"
	CertificateIssue     CertificateAction = "issue"
)

var certificateTransitions = map[entity.CertificateStatus]map[CertificateAction]entity.CertificateStatus{
	entity.CertificateStatusNotRequested: {
		CertificateRequest: entity.CertificateStatusRequested,
	},
	entity.CertificateStatusRequested: {
		CertificateRerequest: entity.CertificateStatusRequested,
		CertificateIssue:     entity.CertificateStatusIssued,
	},
	entity.CertificateStatusIssued: {},
}

// NextCertificateStatus applies action to the certificate sub-state of event.
// Certificate actions exist only while the event is approved.
func NextCertificateStatus(event *entity.Event, action CertificateAction) (entity.CertificateStatus, error) {
	if event.Status != entity.EventStatusApproved {
		return "", &entity.StatePreconditionError{Entity: "event", ID: event.ID, Current: string(event.Status), Action: string(action)}
	}
	to, ok := certificateTransitions[event.CertificateStatus][action]
	if !ok {
		return "", &entity.StatePreconditionError{Entity: "event", ID: event.ID, Current: string(event.CertificateStatus), Action: string(action)}
	}
	return to, nil
}

// RequestAction picks the action for a new certificate request: the first
// request, or a new one after the previous request was rejected. Any pending
// request blocks both.
func RequestAction(event *entity.Event, previous []*entity.CertificateRequest) (CertificateAction, error) {
	for _, r := range previous {
		if r.Status == entity.CertificateRequestPending {
			return "", &entity.StatePreconditionError{Entity: "certificate_request", ID: r.ID, Current: string(r.Status), Action: string(CertificateRequest)}
		}
	}
	if event.CertificateStatus == entity.CertificateStatusRequested {
		if len(previous) == 0 || previous[0].Status != entity.CertificateRequestRejected {
			return "", &entity.StatePreconditionError{Entity: "event", ID: event.ID, Current: string(event.CertificateStatus), Action: string(CertificateRerequest)}
		}
		return CertificateRerequest, nil
	}
	return CertificateRequest, nil
}

// ResolveRequest checks that a certificate request can still be decided.
func ResolveRequest(req *entity.CertificateRequest, to entity.CertificateRequestStatus) error {
	if req.Status != entity.CertificateRequestPending {
		return &entity.StatePreconditionError{Entity: "certificate_request", ID: req.ID, Current: string(req.Status), Action: string(to)}
	}
	return nil
}
