package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/wizard"
)

var fixedNow = time.Date(2025, time.March, 1, 20, 0, 0, 0, time.UTC)

var (
	organizer = entity.Identity{UserID: "user-1", Email: "organizador@uabc.edu.mx", Name: "Dra. Pérez", Role: entity.RoleUser}
	stranger  = entity.Identity{UserID: "user-2", Email: "otro@uabc.edu.mx", Role: entity.RoleUser}
	admin     = entity.Identity{UserID: "admin-1", Email: "admin@uabc.edu.mx", Role: entity.RoleAdmin}
)

func validEventData() *entity.EventData {
	return &entity.EventData{
		Name:              "Simposio de Salud Mental",
		Responsible:       "Dra. Pérez",
		Email:             "contacto@uabc.edu.mx",
		Phone:             "6641234567",
		Program:           entity.ProgramPsicologia,
		Type:              entity.EventTypeAcademico,
		Classification:    entity.ClassificationConferencia,
		Modality:          entity.ModalityPresencial,
		Venue:             "Auditorio FMP",
		StartDate:         fixedNow.Add(30 * 24 * time.Hour),
		EndDate:           fixedNow.Add(30*24*time.Hour + 4*time.Hour),
		Organizers:        "Facultad de Medicina y Psicología",
		ProgramDetails:    "10:00 Conferencia magistral",
		CodigosRequeridos: 3,
	}
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]entity.Event
}

func newFakeEventRepo(events ...*entity.Event) *fakeEventRepo {
	r := &fakeEventRepo{events: make(map[string]entity.Event)}
	for _, e := range events {
		r.events[e.ID] = *e
	}
	return r
}

func (r *fakeEventRepo) get(id string) entity.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[id]
}

func (r *fakeEventRepo) Create(_ context.Context, e *entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.ID] = *e
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	return &e, nil
}

func (r *fakeEventRepo) Update(_ context.Context, e *entity.Event, expected entity.EventStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[e.ID]
	if !ok {
		return entity.ErrEventNotFound
	}
	if stored.Status != expected {
		return entity.ErrStateConflict
	}
	e.AdminComments = stored.AdminComments
	e.CertificateStatus = stored.CertificateStatus
	r.events[e.ID] = *e
	return nil
}

func (r *fakeEventRepo) UpdateStatus(_ context.Context, id string, from, to entity.EventStatus, comments, reason string) (*entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	if stored.Status != from {
		return nil, entity.ErrStateConflict
	}
	stored.Status = to
	stored.AdminComments = comments
	stored.RejectionReason = reason
	stored.UpdatedAt = fixedNow
	r.events[id] = stored
	return &stored, nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return entity.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) Search(_ context.Context, f entity.EventFilter) (*entity.EventPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page := &entity.EventPage{Events: []*entity.Event{}}
	for _, e := range r.events {
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		e := e
		page.Events = append(page.Events, &e)
	}
	page.Total = len(page.Events)
	return page, nil
}

func (r *fakeEventRepo) ListByStatus(_ context.Context, status entity.EventStatus) ([]*entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Event
	for _, e := range r.events {
		if e.Status == status {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeEventRepo) Statistics(_ context.Context, since time.Time) (*entity.EventStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &entity.EventStatistics{
		ByStatus:            map[entity.EventStatus]int{},
		ByCertificateStatus: map[entity.CertificateStatus]int{},
	}
	for _, e := range r.events {
		stats.Total++
		stats.ByStatus[e.Status]++
		stats.ByCertificateStatus[e.CertificateStatus]++
		if !e.CreatedAt.Before(since) {
			stats.Recent++
		}
	}
	return stats, nil
}

// fakeCertRepo shares the event map so the combined updates behave like the
// SQL transactions.
type fakeCertRepo struct {
	events       *fakeEventRepo
	requests     map[string]entity.CertificateRequest
	order        []string
	failApproval error
}

func newFakeCertRepo(events *fakeEventRepo) *fakeCertRepo {
	return &fakeCertRepo{events: events, requests: make(map[string]entity.CertificateRequest)}
}

func (r *fakeCertRepo) Create(_ context.Context, req *entity.CertificateRequest, from entity.CertificateStatus) error {
	r.events.mu.Lock()
	defer r.events.mu.Unlock()
	e, ok := r.events.events[req.EventID]
	if !ok || e.Status != entity.EventStatusApproved || e.CertificateStatus != from {
		return entity.ErrStateConflict
	}
	for _, existing := range r.requests {
		if existing.EventID == req.EventID && existing.Status == entity.CertificateRequestPending {
			return entity.ErrStateConflict
		}
	}
	e.CertificateStatus = entity.CertificateStatusRequested
	r.events.events[e.ID] = e
	r.requests[req.ID] = *req
	r.order = append(r.order, req.ID)
	return nil
}

func (r *fakeCertRepo) GetByID(_ context.Context, id string) (*entity.CertificateRequest, error) {
	r.events.mu.Lock()
	defer r.events.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, entity.ErrCertificateRequestNotFound
	}
	return &req, nil
}

func (r *fakeCertRepo) ListPending(_ context.Context) ([]*entity.CertificateRequestWithEvent, error) {
	r.events.mu.Lock()
	defer r.events.mu.Unlock()
	var out []*entity.CertificateRequestWithEvent
	for _, id := range r.order {
		req := r.requests[id]
		if req.Status == entity.CertificateRequestPending {
			out = append(out, &entity.CertificateRequestWithEvent{CertificateRequest: req, EventName: r.events.events[req.EventID].Name})
		}
	}
	return out, nil
}

func (r *fakeCertRepo) ListByEvent(_ context.Context, eventID string) ([]*entity.CertificateRequest, error) {
	r.events.mu.Lock()
	defer r.events.mu.Unlock()
	var out []*entity.CertificateRequest
	for i := len(r.order) - 1; i >= 0; i-- {
		req := r.requests[r.order[i]]
		if req.EventID == eventID {
			out = append(out, &req)
		}
	}
	return out, nil
}

func (r *fakeCertRepo) Approve(_ context.Context, id string, at time.Time) (*entity.CertificateRequest, error) {
	r.events.mu.Lock()
	defer r.events.mu.Unlock()
	if r.failApproval != nil {
		return nil, r.failApproval
	}
	req, ok := r.requests[id]
	if !ok {
		return nil, entity.ErrCertificateRequestNotFound
	}
	e := r.events.events[req.EventID]
	if req.Status != entity.CertificateRequestPending || e.CertificateStatus != entity.CertificateStatusRequested {
		return nil, entity.ErrStateConflict
	}
	req.Status = entity.CertificateRequestApproved
	req.ProcessedAt = &at
	e.CertificateStatus = entity.CertificateStatusIssued
	r.requests[id] = req
	r.events.events[e.ID] = e
	return &req, nil
}

func (r *fakeCertRepo) Reject(_ context.Context, id, reason string, at time.Time) (*entity.CertificateRequest, error) {
	r.events.mu.Lock()
	defer r.events.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, entity.ErrCertificateRequestNotFound
	}
	if req.Status != entity.CertificateRequestPending {
		return nil, entity.ErrStateConflict
	}
	req.Status = entity.CertificateRequestRejected
	req.RejectionReason = reason
	req.ProcessedAt = &at
	r.requests[id] = req
	return &req, nil
}

func (r *fakeCertRepo) Statistics(_ context.Context, since time.Time) (*entity.CertificateStatistics, error) {
	r.events.mu.Lock()
	defer r.events.mu.Unlock()
	stats := &entity.CertificateStatistics{Requests: map[entity.CertificateRequestStatus]int{}}
	for _, req := range r.requests {
		stats.Requests[req.Status]++
		if !req.RequestedAt.Before(since) {
			stats.Recent++
		}
	}
	return stats, nil
}

type fakeFileRepo struct {
	files map[string]entity.EventFile
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]entity.EventFile)}
}

func (r *fakeFileRepo) Create(_ context.Context, f *entity.EventFile) error {
	r.files[f.ID] = *f
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, id string) (*entity.EventFile, error) {
	f, ok := r.files[id]
	if !ok {
		return nil, entity.ErrFileNotFound
	}
	return &f, nil
}

func (r *fakeFileRepo) ListByEvent(_ context.Context, eventID string) ([]*entity.EventFile, error) {
	out := []*entity.EventFile{}
	for _, f := range r.files {
		if f.EventID == eventID && f.CertificateRequestID == "" {
			f := f
			out = append(out, &f)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.files[id]; !ok {
		return entity.ErrFileNotFound
	}
	delete(r.files, id)
	return nil
}

type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failAfter int
	uploads   int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte), failAfter: -1}
}

func (b *fakeBlobs) Upload(_ context.Context, path string, r io.Reader) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAfter >= 0 && b.uploads >= b.failAfter {
		return 0, errors.New("disk full")
	}
	b.uploads++
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return 0, err
	}
	b.objects[path] = buf.Bytes()
	return n, nil
}

func (b *fakeBlobs) SignedURL(path string) (string, time.Time, error) {
	return "https://files.test/" + path + "?token=t", fixedNow.Add(time.Hour), nil
}

func (b *fakeBlobs) Delete(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, path)
	return nil
}

func (b *fakeBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type notice struct {
	kind    string
	eventID string
}

// recordingNotifications records every call instead of sending.
type recordingNotifications struct {
	mu    sync.Mutex
	calls []notice
}

func (n *recordingNotifications) record(kind, eventID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notice{kind: kind, eventID: eventID})
}

func (n *recordingNotifications) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, c := range n.calls {
		out = append(out, c.kind)
	}
	return out
}

func (n *recordingNotifications) count(kind string) int {
	c := 0
	for _, k := range n.kinds() {
		if k == kind {
			c++
		}
	}
	return c
}

func (n *recordingNotifications) EventSubmitted(_ context.Context, e *entity.Event, _ entity.Identity) {
	n.record("submitted", e.ID)
}
func (n *recordingNotifications) EventApproved(_ context.Context, e *entity.Event) {
	n.record("approved", e.ID)
}
func (n *recordingNotifications) EventRejected(_ context.Context, e *entity.Event) {
	n.record("rejected", e.ID)
}
func (n *recordingNotifications) CertificatesRequested(_ context.Context, e *entity.Event, _ *entity.CertificateRequest) {
	n.record("certificates_requested", e.ID)
}
func (n *recordingNotifications) CertificatesApproved(_ context.Context, e *entity.Event, _ *entity.CertificateRequest) {
	n.record("certificates_approved", e.ID)
}
func (n *recordingNotifications) CertificatesRejected(_ context.Context, e *entity.Event, _ *entity.CertificateRequest) {
	n.record("certificates_rejected", e.ID)
}
func (n *recordingNotifications) Lifecycle(_ context.Context, e *entity.Event, action string) {
	n.record("lifecycle:"+action, e.ID)
}

// recordingNotifier accepts or refuses every message and keeps them all.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []entity.Message
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, msg entity.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

type recordingPublisher struct {
	mu    sync.Mutex
	tasks []*Task
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, task *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return p.err
}

func (p *recordingPublisher) ofType(taskType string) []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Task
	for _, t := range p.tasks {
		if t.Type == taskType {
			out = append(out, t)
		}
	}
	return out
}

type memorySessions struct {
	sessions map[string]wizard.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]wizard.Session)}
}

func (m *memorySessions) Save(_ context.Context, s *wizard.Session) error {
	m.sessions[s.ID] = *s
	return nil
}

func (m *memorySessions) Get(_ context.Context, id string) (*wizard.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}
