// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

// ContactEnquiryData is a submission from the public contact form.
type ContactEnquiryData struct {
	Name        string
	Email       string
	Phone       string
	Message     string
	ClientIP    string
	SubmittedAt time.Time
}

// ContactEnquirySubject is the subject line for a contact form notification.
func ContactEnquirySubject(name string) string {
	return "[ViCAR Enquiry Form] New Contact Form Submission from " + name
}

// ContactEnquiryEmail builds the staff notification for a contact form
// submission. User input is escaped in the HTML version.
func ContactEnquiryEmail(data ContactEnquiryData) (subject, textBody, htmlBody string) {
	submitted := data.SubmittedAt.Format("2006-01-02 15:04:05 MST")

	var tb strings.Builder
	tb.WriteString("New contact form submission\n\n")
	tb.WriteString("Name: " + data.Name + "\n")
	tb.WriteString("Email: " + data.Email + "\n")
	tb.WriteString("Phone: " + data.Phone + "\n\n")
	tb.WriteString("Message:\n" + data.Message + "\n\n")
	tb.WriteString("Submitted at: " + submitted + "\n")
	if data.ClientIP != "" {
		tb.WriteString("IP address: " + data.ClientIP + "\n")
	}

	var buf bytes.Buffer
	_ = contactTmpl.Execute(&buf, struct {
		ContactEnquiryData
		Submitted string
	}{data, submitted})

	return ContactEnquirySubject(data.Name), tb.String(), buf.String()
}

var contactTmpl = template.Must(template.New("contact").Funcs(template.FuncMap{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<h2 style="color: #1a1a1a;">New Contact Form Submission</h2>
<table style="border-collapse: collapse;">
<tr><td style="padding: 4px 12px 4px 0;"><strong>Name:</strong></td><td>{{.Name}}</td></tr>
<tr><td style="padding: 4px 12px 4px 0;"><strong>Email:</strong></td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
<tr><td style="padding: 4px 12px 4px 0;"><strong>Phone:</strong></td><td>{{.Phone}}</td></tr>
</table>
<h3>Message</h3>
<p style="background: #f5f5f5; padding: 12px; border-radius: 4px;">{{range $i, $l := lines .Message}}{{if $i}}<br>{{end}}{{$l}}{{end}}</p>
<p style="color: #888; font-size: 12px;">Submitted at {{.Submitted}}{{if .ClientIP}} from {{.ClientIP}}{{end}}</p>
</body>
</html>`))
