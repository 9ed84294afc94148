package mailer

import (
	"bytes"
	htmpl "html/template"
	"strings"
	texttpl "text/template"

	"github.com/oksasatya/go-ddd-users-api/pkg/events"
)

const welcomeText = `Hi {{.Name}},

Your {{.Company}} account for {{.Email}} is ready.
Please verify your email address to finish setting it up.
`

const welcomeHTML = `<p>Hi {{.Name}},</p>
<p>Your {{.Company}} account for <strong>{{.Email}}</strong> is ready.</p>
<p>Please verify your email address to finish setting it up.</p>
`

var (
	welcomeTextTpl = texttpl.Must(texttpl.New("welcome.txt").Parse(welcomeText))
	welcomeHTMLTpl = htmpl.Must(htmpl.New("welcome.html").Parse(welcomeHTML))
)

type welcomeData struct {
	Name    string
	Email   string
	Company string
}

// Welcome renders the greeting sent after an account is created.
func Welcome(ev events.UserEvent, company string) (subject, text, html string, err error) {
	if company == "" {
		company = "Users"
	}
	name := strings.TrimSpace(ev.Firstname + " " + ev.Lastname)
	if name == "" {
		name = ev.Email
	}
	d := welcomeData{Name: name, Email: ev.Email, Company: company}

	var tb, hb bytes.Buffer
	if err = welcomeTextTpl.Execute(&tb, d); err != nil {
		return "", "", "", err
	}
	if err = welcomeHTMLTpl.Execute(&hb, d); err != nil {
		return "", "", "", err
	}
	return "Welcome to " + company, tb.String(), hb.String(), nil
}
