package service

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/wizard"
	"github.com/ds124wfegd/uabc-events/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, notifier Notifier, publisher TaskPublisher) *Dispatcher {
	t.Helper()
	loc, err := time.LoadLocation(wizard.DefaultZone)
	require.NoError(t, err)
	return NewDispatcher(notifier, publisher, NotificationSettings{
		AdminEmail:     "admin@uabc.edu.mx",
		CodesEmail:     "codigos@uabc.edu.mx",
		LifecycleTopic: "uabc.events.lifecycle",
		Location:       loc,
	})
}

func TestDispatcherNotices(t *testing.T) {
	ctx := context.Background()
	event := storedEvent("evt-1", entity.EventStatusApproved)
	event.StartDate = time.Date(2025, 4, 15, 17, 0, 0, 0, time.UTC)
	event.EndDate = time.Date(2025, 4, 15, 21, 0, 0, 0, time.UTC)
	event.RejectionReason = "Falta el programa"
	req := &entity.CertificateRequest{
		ID:              "req-1",
		Participants:    []entity.Participant{{Name: "Ana"}, {Name: "Luis"}},
		RejectionReason: "Lista sin firmas",
	}

	tests := []struct {
		name     string
		send     func(d *Dispatcher)
		wantTo   []string
		subject  string
		contains string
		mirrored bool
	}{
		{
			name:     "new event goes to admin",
			send:     func(d *Dispatcher) { d.EventSubmitted(ctx, event, organizer) },
			wantTo:   []string{"admin@uabc.edu.mx"},
			subject:  "Nuevo evento registrado: Simposio de Salud Mental",
			contains: "Registrado por: Dra. Pérez",
			mirrored: true,
		},
		{
			name:     "approval goes to organizer and codes office",
			send:     func(d *Dispatcher) { d.EventApproved(ctx, event) },
			wantTo:   []string{"contacto@uabc.edu.mx", "codigos@uabc.edu.mx"},
			subject:  "Evento aprobado: Simposio de Salud Mental",
			contains: "15/04/2025 10:00",
		},
		{
			name:     "rejection carries the reason",
			send:     func(d *Dispatcher) { d.EventRejected(ctx, event) },
			wantTo:   []string{"contacto@uabc.edu.mx"},
			subject:  "Evento rechazado: Simposio de Salud Mental",
			contains: "Motivo: Falta el programa",
		},
		{
			name:     "certificate request goes to admin",
			send:     func(d *Dispatcher) { d.CertificatesRequested(ctx, event, req) },
			wantTo:   []string{"admin@uabc.edu.mx"},
			subject:  "Solicitud de constancias: Simposio de Salud Mental",
			contains: "Participantes: 2",
			mirrored: true,
		},
		{
			name:    "certificates approved",
			send:    func(d *Dispatcher) { d.CertificatesApproved(ctx, event, req) },
			wantTo:  []string{"contacto@uabc.edu.mx"},
			subject: "Constancias aprobadas: Simposio de Salud Mental",
		},
		{
			name:     "certificates rejected",
			send:     func(d *Dispatcher) { d.CertificatesRejected(ctx, event, req) },
			wantTo:   []string{"contacto@uabc.edu.mx"},
			subject:  "Solicitud de constancias rechazada: Simposio de Salud Mental",
			contains: "Motivo: Lista sin firmas",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			publisher := &recordingPublisher{}
			tt.send(newTestDispatcher(t, notifier, publisher))

			require.Len(t, notifier.messages, len(tt.wantTo))
			for i, to := range tt.wantTo {
				assert.Equal(t, to, notifier.messages[i].To)
			}
			first := notifier.messages[0]
			assert.Equal(t, tt.subject, first.Subject)
			assert.Contains(t, first.Text, tt.contains)
			assert.Contains(t, first.HTML, "Simposio de Salud Mental")

			telegram := publisher.ofType(TaskTypeSendTelegram)
			if tt.mirrored {
				require.Len(t, telegram, 1)
				assert.Contains(t, telegram[0].Data["text"], tt.subject)
			} else {
				assert.Empty(t, telegram)
			}
		})
	}
}

func TestDispatcherOrganizerFallback(t *testing.T) {
	event := storedEvent("evt-1", entity.EventStatusRejected)
	event.Email = ""
	notifier := &recordingNotifier{}

	newTestDispatcher(t, notifier, nil).EventRejected(context.Background(), event)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, organizer.Email, notifier.messages[0].To)
}

func TestDispatcherSkipsMissingRecipient(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, nil, NotificationSettings{})

	d.EventSubmitted(context.Background(), storedEvent("evt-1", entity.EventStatusInReview), organizer)
	assert.Empty(t, notifier.messages)
}

func TestDispatcherMirrorsEvenWhenMailFails(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	publisher := &recordingPublisher{}

	newTestDispatcher(t, notifier, publisher).EventSubmitted(context.Background(), storedEvent("evt-1", entity.EventStatusInReview), organizer)
	assert.Len(t, notifier.messages, 1)
	assert.Len(t, publisher.ofType(TaskTypeSendTelegram), 1)
}

func TestDispatcherLifecycle(t *testing.T) {
	ctx := context.Background()
	event := storedEvent("evt-1", entity.EventStatusApproved)

	t.Run("publishes record", func(t *testing.T) {
		publisher := &recordingPublisher{}
		newTestDispatcher(t, &recordingNotifier{}, publisher).Lifecycle(ctx, event, "approve")

		tasks := publisher.ofType(TaskTypePublishEvent)
		require.Len(t, tasks, 1)
		assert.Equal(t, "uabc.events.lifecycle", tasks[0].Data["topic"])
		payload := tasks[0].Data["payload"].(map[string]interface{})
		assert.Equal(t, "evt-1", payload["event_id"])
		assert.Equal(t, "approve", payload["action"])
		assert.Equal(t, "aprobado", payload["status"])
	})

	t.Run("no topic", func(t *testing.T) {
		publisher := &recordingPublisher{}
		NewDispatcher(&recordingNotifier{}, publisher, NotificationSettings{}).Lifecycle(ctx, event, "approve")
		assert.Empty(t, publisher.tasks)
	})

	t.Run("publish failure is swallowed", func(t *testing.T) {
		publisher := &recordingPublisher{err: errors.New("broker down")}
		assert.NotPanics(t, func() {
			newTestDispatcher(t, &recordingNotifier{}, publisher).Lifecycle(ctx, event, "approve")
		})
	})
}

func TestQueueNotifier(t *testing.T) {
	publisher := &recordingPublisher{}
	msg := entity.Message{To: "a@uabc.edu.mx", Subject: "Hola", HTML: "<p>Hola</p>", Text: "Hola"}

	require.NoError(t, NewQueueNotifier(publisher).Send(context.Background(), msg))

	tasks := publisher.ofType(TaskTypeSendEmail)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a@uabc.edu.mx", tasks[0].Data["to"])
	assert.Equal(t, "Hola", tasks[0].Data["subject"])
	assert.Contains(t, tasks[0].ID, TaskTypeSendEmail+"_")
}

type fakeQueue struct {
	published []*queue.Task
}

func (q *fakeQueue) Publish(_ context.Context, task *queue.Task) error {
	q.published = append(q.published, task)
	return nil
}

func (q *fakeQueue) Subscribe(context.Context, func(*queue.Task) error) error { return nil }

func (q *fakeQueue) Close() error { return nil }

func TestQueueAdapter(t *testing.T) {
	ctx := context.Background()

	t.Run("converts task", func(t *testing.T) {
		q := &fakeQueue{}
		task := newTask(TaskTypeSendTelegram, map[string]interface{}{"text": "hola"})
		task.MaxRetries = 3

		require.NoError(t, NewQueueAdapter(q).Publish(ctx, task))
		require.Len(t, q.published, 1)
		assert.Equal(t, queue.TaskTypeSendTelegram, q.published[0].Type)
		assert.Equal(t, task.ID, q.published[0].ID)
		assert.Equal(t, 3, q.published[0].MaxRetries)
		assert.False(t, q.published[0].CreatedAt.IsZero())
	})

	t.Run("no queue", func(t *testing.T) {
		err := NewQueueAdapter(nil).Publish(ctx, newTask(TaskTypeSendEmail, nil))
		assert.ErrorIs(t, err, errNoQueue)
	})
}
