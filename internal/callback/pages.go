package callback

import (
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

const pageLayout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ block "title" . }}sessionkeeper{{ end }}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 4rem auto; max-width: 32rem; color: #222; }
h1 { font-size: 1.4rem; }
.error { color: #b00020; }
code { background: #f3f3f3; padding: 0 .25rem; }
</style>
</head>
<body>
{{ block "body" . }}{{ end }}
</body>
</html>`

const successPage = `{{ define "title" }}Signed in{{ end }}
{{ define "body" }}<h1>Signed in to {{ .App | default "sessionkeeper" }}</h1>
<p>You can close this window and return to the terminal.</p>{{ end }}`

const errorPage = `{{ define "title" }}Sign-in failed{{ end }}
{{ define "body" }}<h1 class="error">Sign-in failed</h1>
<p>The identity provider returned <code>{{ .Error | default "unknown_error" }}</code>.</p>
{{ with .Description }}<p>{{ . | trunc 300 }}</p>{{ end }}
<p>Return to the terminal to try again.</p>{{ end }}`

var (
	successTemplate = mustPage("success", successPage)
	errorTemplate   = mustPage("error", errorPage)
)

func mustPage(name, page string) *template.Template {
	t := template.Must(template.New(name).Funcs(sprig.HtmlFuncMap()).Parse(pageLayout))
	return template.Must(t.Parse(page))
}
