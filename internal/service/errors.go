package service

import (
	"errors"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

// storeError passes domain sentinels through and marks anything else as a
// persistence failure.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		entity.ErrEventNotFound,
		entity.ErrCertificateRequestNotFound,
		entity.ErrFileNotFound,
		entity.ErrSessionNotFound,
		entity.ErrStateConflict,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	var collab *entity.CollaboratorError
	if errors.As(err, &collab) {
		return err
	}
	return &entity.CollaboratorError{Collaborator: "store", Err: err}
}

func blobError(err error) error {
	return &entity.CollaboratorError{Collaborator: "blob store", Err: err}
}

func requireUser(actor entity.Identity) error {
	if actor.UserID == "" {
		return entity.ErrUnauthenticated
	}
	return nil
}

func requireAdmin(actor entity.Identity, action string) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return &entity.AuthorizationError{Action: action, Reason: "administrator role required"}
	}
	return nil
}

func requireOwnerOrAdmin(actor entity.Identity, event *entity.Event, action string) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if actor.IsAdmin() || actor.Owns(event) {
		return nil
	}
	return &entity.AuthorizationError{Action: action, Reason: "not the event owner"}
}

func requireOwner(actor entity.Identity, event *entity.Event, action string) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.Owns(event) {
		return &entity.AuthorizationError{Action: action, Reason: "not the event owner"}
	}
	return nil
}
