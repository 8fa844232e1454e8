package service

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

const (
	noticeNewEvent             = "new_event"
	noticeEventApproved        = "event_approved"
	noticeEventRejected        = "event_rejected"
	noticeCodes                = "codes"
	noticeCertificatesRequest  = "certificates_requested"
	noticeCertificatesApproved = "certificates_approved"
	noticeCertificatesRejected = "certificates_rejected"
)

// noticeView is the data every notice template renders from.
type noticeView struct {
	System    string
	Event     *entity.Event
	Start     string
	End       string
	Submitter entity.Identity
	Request   *entity.CertificateRequest
}

const textNotices = `
{{define "footer"}}
---
{{.System}}{{end}}

{{define "new_event.subject"}}Nuevo evento registrado: {{.Event.Name}}{{end}}
{{define "new_event.text"}}Nuevo Evento Registrado

Se ha registrado un nuevo evento en el sistema:

Evento: {{.Event.Name}}
Registrado por: {{.Submitter.Name}}
Email del usuario: {{.Submitter.Email}}
ID del evento: {{.Event.ID}}

El evento está pendiente de revisión administrativa.
{{template "footer" .}}{{end}}

{{define "event_approved.subject"}}Evento aprobado: {{.Event.Name}}{{end}}
{{define "event_approved.text"}}Su evento "{{.Event.Name}}" ha sido aprobado.

Fecha: {{.Start}} a {{.End}}
Sede: {{.Event.Venue}}
{{with .Event.AdminComments}}
Comentarios: {{.}}
{{end}}
Una vez concluido el evento podrá solicitar las constancias desde el sistema.
{{template "footer" .}}{{end}}

{{define "event_rejected.subject"}}Evento rechazado: {{.Event.Name}}{{end}}
{{define "event_rejected.text"}}Su evento "{{.Event.Name}}" no fue aprobado.

Motivo: {{.Event.RejectionReason}}

Puede corregir la información y enviarlo nuevamente a revisión.
{{template "footer" .}}{{end}}

{{define "codes.subject"}}Solicitud de códigos 8 = 1: {{.Event.Name}}{{end}}
{{define "codes.text"}}Se aprobó un evento que requiere códigos 8 = 1.

Evento: {{.Event.Name}}
Códigos requeridos: {{.Event.CodigosRequeridos}}
Fecha: {{.Start}} a {{.End}}
Modalidad: {{.Event.Modality}}
Sede: {{.Event.Venue}}
Categoría: {{.Event.Type}} / {{.Event.Classification}}{{with .Event.ClassificationOther}} ({{.}}){{end}}
Programa educativo: {{.Event.Program}}
Responsable: {{.Event.Responsible}}

Resumen:
{{.Event.ProgramDetails}}
{{template "footer" .}}{{end}}

{{define "certificates_requested.subject"}}Solicitud de constancias: {{.Event.Name}}{{end}}
{{define "certificates_requested.text"}}Se recibió una solicitud de constancias.

Evento: {{.Event.Name}}
Participantes: {{len .Request.Participants}}
Ponentes: {{len .Request.Speakers}}
Comité: {{len .Request.Committee}}
ID de la solicitud: {{.Request.ID}}

La solicitud está pendiente de revisión administrativa.
{{template "footer" .}}{{end}}

{{define "certificates_approved.subject"}}Constancias aprobadas: {{.Event.Name}}{{end}}
{{define "certificates_approved.text"}}La solicitud de constancias del evento "{{.Event.Name}}" fue aprobada y las constancias serán emitidas.
{{template "footer" .}}{{end}}

{{define "certificates_rejected.subject"}}Solicitud de constancias rechazada: {{.Event.Name}}{{end}}
{{define "certificates_rejected.text"}}La solicitud de constancias del evento "{{.Event.Name}}" no fue aprobada.
{{with .Request.RejectionReason}}
Motivo: {{.}}
{{end}}
Puede enviar una nueva solicitud con la información corregida.
{{template "footer" .}}{{end}}
`

const htmlNotices = `
{{define "open"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">{{end}}
{{define "close"}}<p style="color: #666; font-size: 12px; margin-top: 30px;">Este es un mensaje automático del {{.System}}</p></div>{{end}}
{{define "card"}}<div style="background-color: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">{{end}}

{{define "new_event"}}{{template "open"}}
<h2 style="color: #006341;">Nuevo Evento Registrado</h2>
<p>Se ha registrado un nuevo evento en el sistema:</p>
{{template "card"}}
<h3 style="margin-top: 0; color: #006341;">{{.Event.Name}}</h3>
<p><strong>Registrado por:</strong> {{.Submitter.Name}}</p>
<p><strong>Email del usuario:</strong> {{.Submitter.Email}}</p>
<p><strong>ID del evento:</strong> {{.Event.ID}}</p>
</div>
<p>El evento está pendiente de revisión administrativa.</p>
{{template "close" .}}{{end}}

{{define "event_approved"}}{{template "open"}}
<h2 style="color: #006341;">Evento aprobado</h2>
<p>Su evento <strong>{{.Event.Name}}</strong> ha sido aprobado.</p>
{{template "card"}}
<p><strong>Fecha:</strong> {{.Start}} a {{.End}}</p>
<p><strong>Sede:</strong> {{.Event.Venue}}</p>
{{with .Event.AdminComments}}<p><strong>Comentarios:</strong> {{.}}</p>{{end}}
</div>
<p>Una vez concluido el evento podrá solicitar las constancias desde el sistema.</p>
{{template "close" .}}{{end}}

{{define "event_rejected"}}{{template "open"}}
<h2 style="color: #a51c30;">Evento rechazado</h2>
<p>Su evento <strong>{{.Event.Name}}</strong> no fue aprobado.</p>
{{template "card"}}<p><strong>Motivo:</strong> {{.Event.RejectionReason}}</p></div>
<p>Puede corregir la información y enviarlo nuevamente a revisión.</p>
{{template "close" .}}{{end}}

{{define "codes"}}{{template "open"}}
<h2 style="color: #006341;">Solicitud de códigos 8 = 1</h2>
{{template "card"}}
<h3 style="margin-top: 0; color: #006341;">{{.Event.Name}}</h3>
<p><strong>Códigos requeridos:</strong> {{.Event.CodigosRequeridos}}</p>
<p><strong>Fecha:</strong> {{.Start}} a {{.End}}</p>
<p><strong>Modalidad:</strong> {{.Event.Modality}}</p>
<p><strong>Sede:</strong> {{.Event.Venue}}</p>
<p><strong>Categoría:</strong> {{.Event.Type}} / {{.Event.Classification}}{{with .Event.ClassificationOther}} ({{.}}){{end}}</p>
<p><strong>Programa educativo:</strong> {{.Event.Program}}</p>
<p><strong>Responsable:</strong> {{.Event.Responsible}}</p>
</div>
<p><strong>Resumen:</strong></p>
<p>{{.Event.ProgramDetails}}</p>
{{template "close" .}}{{end}}

{{define "certificates_requested"}}{{template "open"}}
<h2 style="color: #006341;">Solicitud de constancias</h2>
{{template "card"}}
<h3 style="margin-top: 0; color: #006341;">{{.Event.Name}}</h3>
<p><strong>Participantes:</strong> {{len .Request.Participants}}</p>
<p><strong>Ponentes:</strong> {{len .Request.Speakers}}</p>
<p><strong>Comité:</strong> {{len .Request.Committee}}</p>
<p><strong>ID de la solicitud:</strong> {{.Request.ID}}</p>
</div>
<p>La solicitud está pendiente de revisión administrativa.</p>
{{template "close" .}}{{end}}

{{define "certificates_approved"}}{{template "open"}}
<h2 style="color: #006341;">Constancias aprobadas</h2>
<p>La solicitud de constancias del evento <strong>{{.Event.Name}}</strong> fue aprobada y las constancias serán emitidas.</p>
{{template "close" .}}{{end}}

{{define "certificates_rejected"}}{{template "open"}}
<h2 style="color: #a51c30;">Solicitud de constancias rechazada</h2>
<p>La solicitud de constancias del evento <strong>{{.Event.Name}}</strong> no fue aprobada.</p>
{{with .Request.RejectionReason}}{{template "card"}}<p><strong>Motivo:</strong> {{.}}</p></div>{{end}}
<p>Puede enviar una nueva solicitud con la información corregida.</p>
{{template "close" .}}{{end}}
`

var (
	textTemplates = texttemplate.Must(texttemplate.New("notices").Parse(textNotices))
	htmlTemplates = htmltemplate.Must(htmltemplate.New("notices").Parse(htmlNotices))
)

func renderNotice(name, to string, view noticeView) (entity.Message, error) {
	var subject, text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&subject, name+".subject", view); err != nil {
		return entity.Message{}, err
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".text", view); err != nil {
		return entity.Message{}, err
	}
	if err := htmlTemplates.ExecuteTemplate(&html, name, view); err != nil {
		return entity.Message{}, err
	}
	return entity.Message{
		To:      to,
		Subject: strings.TrimSpace(subject.String()),
		HTML:    strings.TrimSpace(html.String()),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}
