package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/sirupsen/logrus"
)

const dateLayout = "02/01/2006 15:04"

type NotificationSettings struct {
	AdminEmail     string
	CodesEmail     string
	SystemName     string
	LifecycleTopic string
	Location       *time.Location
}

// Dispatcher renders notices and hands them to the notifier. Admin notices
// are mirrored to Telegram and every state change goes to the event stream,
// both through the task queue.
type Dispatcher struct {
	notifier  Notifier
	publisher TaskPublisher
	settings  NotificationSettings
}

func NewDispatcher(notifier Notifier, publisher TaskPublisher, settings NotificationSettings) *Dispatcher {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.SystemName == "" {
		settings.SystemName = "Sistema de Registro y Constancias - FMP UABC"
	}
	return &Dispatcher{notifier: notifier, publisher: publisher, settings: settings}
}

func (d *Dispatcher) view(event *entity.Event) noticeView {
	v := noticeView{System: d.settings.SystemName, Event: event}
	if !event.StartDate.IsZero() {
		v.Start = event.StartDate.In(d.settings.Location).Format(dateLayout)
	}
	if !event.EndDate.IsZero() {
		v.End = event.EndDate.In(d.settings.Location).Format(dateLayout)
	}
	return v
}

func (d *Dispatcher) EventSubmitted(ctx context.Context, event *entity.Event, submitter entity.Identity) {
	v := d.view(event)
	v.Submitter = submitter
	if v.Submitter.Name == "" {
		v.Submitter.Name = submitter.Email
	}
	if msg, rendered := d.deliver(ctx, noticeNewEvent, d.settings.AdminEmail, v); rendered {
		d.mirror(ctx, msg)
	}
}

// EventApproved sends the organizer notice and the code-allocation notice.
// One failing does not stop the other.
func (d *Dispatcher) EventApproved(ctx context.Context, event *entity.Event) {
	v := d.view(event)
	d.deliver(ctx, noticeEventApproved, event.OrganizerAddress(), v)
	d.deliver(ctx, noticeCodes, d.settings.CodesEmail, v)
}

func (d *Dispatcher) EventRejected(ctx context.Context, event *entity.Event) {
	d.deliver(ctx, noticeEventRejected, event.OrganizerAddress(), d.view(event))
}

func (d *Dispatcher) CertificatesRequested(ctx context.Context, event *entity.Event, req *entity.CertificateRequest) {
	v := d.view(event)
	v.Request = req
	if msg, rendered := d.deliver(ctx, noticeCertificatesRequest, d.settings.AdminEmail, v); rendered {
		d.mirror(ctx, msg)
	}
}

func (d *Dispatcher) CertificatesApproved(ctx context.Context, event *entity.Event, req *entity.CertificateRequest) {
	v := d.view(event)
	v.Request = req
	d.deliver(ctx, noticeCertificatesApproved, event.OrganizerAddress(), v)
}

func (d *Dispatcher) CertificatesRejected(ctx context.Context, event *entity.Event, req *entity.CertificateRequest) {
	v := d.view(event)
	v.Request = req
	d.deliver(ctx, noticeCertificatesRejected, event.OrganizerAddress(), v)
}

func (d *Dispatcher) Lifecycle(ctx context.Context, event *entity.Event, action string) {
	if d.publisher == nil || d.settings.LifecycleTopic == "" {
		return
	}
	task := newTask(TaskTypePublishEvent, map[string]interface{}{
		"topic": d.settings.LifecycleTopic,
		"payload": map[string]interface{}{
			"event_id":           event.ID,
			"action":             action,
			"status":             string(event.Status),
			"certificate_status": string(event.CertificateStatus),
			"user_id":            event.UserID,
			"at":                 time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err := d.publisher.Publish(ctx, task); err != nil {
		logrus.WithFields(logrus.Fields{
			"event_id": event.ID,
			"action":   action,
		}).WithError(err).Warn("failed to publish lifecycle record")
	}
}

// deliver renders one notice and sends it once. The rendered message is
// returned even when sending failed.
func (d *Dispatcher) deliver(ctx context.Context, notice, to string, v noticeView) (entity.Message, bool) {
	log := logrus.WithFields(logrus.Fields{
		"notice":   notice,
		"event_id": v.Event.ID,
	})
	if v.Request != nil {
		log = log.WithField("request_id", v.Request.ID)
	}

	if to == "" {
		log.Warn("notice has no recipient, skipped")
		return entity.Message{}, false
	}

	msg, err := renderNotice(notice, to, v)
	if err != nil {
		log.WithError(err).Error("failed to render notice")
		return entity.Message{}, false
	}

	if err := d.notifier.Send(ctx, msg); err != nil {
		log.WithError(err).Error("failed to dispatch notice")
		return msg, true
	}
	log.Info("notice dispatched")
	return msg, true
}

func (d *Dispatcher) mirror(ctx context.Context, msg entity.Message) {
	if d.publisher == nil {
		return
	}
	task := newTask(TaskTypeSendTelegram, map[string]interface{}{
		"text": msg.Subject + "\n\n" + msg.Text,
	})
	if err := d.publisher.Publish(ctx, task); err != nil {
		logrus.WithError(err).Warn("failed to mirror notice to telegram")
	}
}
