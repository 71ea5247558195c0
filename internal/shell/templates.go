package shell

import (
	"html/template"
	"time"
)

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"levelClass": func(level string) string {
		switch level {
		case "success":
			return "bg-green-100 text-green-800"
		case "warning":
			return "bg-yellow-100 text-yellow-800"
		default:
			return "bg-red-100 text-red-800"
		}
	},
}

var pageTemplate = template.Must(template.New("page").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}} - Storefront</title>
</head>
<body>
<header>
    <strong>Storefront preview</strong>
    {{if .Profile}}
    <span>{{.Profile.Username}} ({{.Profile.Role}}, {{.Scope}}, until {{formatTime .ExpiresAt}})</span>
    <form method="post" action="/logout" style="display:inline"><button type="submit">Log out</button></form>
    {{else}}
    <a href="{{.LoginPath}}">Log in</a>
    {{end}}
</header>
{{range .Messages}}
<div class="toast {{levelClass (print .Level)}}">{{.Text}}</div>
{{end}}
<main>
    <h1>{{.Title}}</h1>
    <dl>
        <dt>Path</dt><dd><code>{{.Path}}</code></dd>
        {{if .Pattern}}<dt>Pattern</dt><dd><code>{{.Pattern}}</code></dd>{{end}}
        {{range $k, $v := .Params}}<dt>:{{$k}}</dt><dd>{{$v}}</dd>{{end}}
    </dl>
    {{if .Matched}}
    <ol>
        {{range .Matched}}<li><code>{{.Path}}</code>{{if .Name}} {{.Name}}{{end}}{{if .RequiresAuth}} [auth]{{end}}{{if .PublicOnly}} [public]{{end}}</li>{{end}}
    </ol>
    {{end}}
    {{if .LoginForm}}
    <form method="post" action="{{.LoginPath}}">
        <input name="username" placeholder="Username" autocomplete="username">
        <input name="password" type="password" placeholder="Password" autocomplete="current-password">
        <label><input name="remember" type="checkbox"> Remember me</label>
        {{if .Redirect}}<input type="hidden" name="redirect" value="{{.Redirect}}">{{end}}
        <button type="submit">Log in</button>
    </form>
    {{end}}
</main>
</body>
</html>
`))
