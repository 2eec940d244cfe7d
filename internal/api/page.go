package api

import (
	"html/template"
	"io"

	"github.com/ajitpratap0/uvb/internal/registry"
)

// Counter names are attacker controlled; html/template escapes them.
var pageTmpl = template.Must(template.New("page").Parse(`<html>
<title>Welcome to Ultimate Victory Battle</title>
<p>
To play POST to /register/[yourname]
<br />
Then POST to /[yourname] to increment your count
<br />
Counters are displayed here. Have fun
</p><br />
{{range .Counters}}<b>{{.Name}}:</b> {{.Count}} - {{.Rate}} req/s <br />
{{end}}{{with .Leader}}Current Winner is: <b>{{.}}</b><br />
{{end}}</html>
`))

type pageData struct {
	Counters []registry.Entry
	Leader   string
}

func renderPage(w io.Writer, entries []registry.Entry) error {
	data := pageData{Counters: entries}
	if leader, ok := registry.Leader(entries); ok {
		data.Leader = leader.Name
	}
	return pageTmpl.Execute(w, data)
}
