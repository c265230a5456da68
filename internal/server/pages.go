package server

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

//go:embed assets/live-reload.js
var liveReloadScript []byte

//go:embed assets/status-bar.js
var statusBarScript []byte

const baseStyle = `* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; min-height: 100vh; }
.center { display: flex; align-items: center; justify-content: center; padding: 20px; color: white; }
.card { text-align: center; max-width: 600px; padding: 60px 40px; background: rgba(255, 255, 255, 0.1); backdrop-filter: blur(20px); border-radius: 24px; box-shadow: 0 8px 32px rgba(0, 0, 0, 0.2); }
h1 { font-size: 2.5em; margin-bottom: 20px; font-weight: 700; }
p { font-size: 1.2em; line-height: 1.6; opacity: 0.9; }
code { background: rgba(0, 0, 0, 0.2); padding: 4px 8px; border-radius: 4px; font-family: monospace; }`

// layout wraps body in a complete document that loads the reload client.
func layout(title, style string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n" +
			"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n" +
			"<title>" + templ.EscapeString(title) + " - SHTML</title>\n" +
			"<style>\n" + baseStyle + "\n" + style + "\n</style>\n</head>\n"
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "<script src=\"/live-reload.js\"></script>\n</body>\n</html>\n")
		return err
	})
}

// BuildingPage is shown while a build is in flight.
func BuildingPage() templ.Component {
	return layout("Building", buildingStyle, templ.Raw(`<body class="center">
<div class="card">
<div class="spinner"></div>
<h1>Building</h1>
<p>Compiling Swift code<span class="dots"></span></p>
<p class="hint">This page will automatically refresh when ready</p>
</div>
`))
}

const buildingStyle = `body { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); }
.spinner { width: 60px; height: 60px; border: 4px solid rgba(255, 255, 255, 0.3); border-top-color: white; border-radius: 50%; animation: spin 1s linear infinite; margin: 0 auto 30px; }
@keyframes spin { to { transform: rotate(360deg); } }
.hint { margin-top: 20px; opacity: 0.7; font-size: 0.9em; }
.dots::after { content: ''; animation: dots 1.5s steps(4, end) infinite; }
@keyframes dots { 0%, 20% { content: ''; } 40% { content: '.'; } 60% { content: '..'; } 80%, 100% { content: '...'; } }`

// ErrorPage renders the captured build diagnostics. The message is escaped.
func ErrorPage(message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<body class="error">
<div class="container">
<div class="header"><h1>Build Failed</h1><p>Fix the errors below and save to rebuild</p></div>
<div class="content">
<pre>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, templ.EscapeString(message)); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</pre>
<div class="help">
<h2>Quick Tips</h2>
<ul>
<li>Check for syntax errors in your Swift code</li>
<li>Make sure all imports are correct</li>
<li>Verify that all types conform to required protocols</li>
<li>The server will auto-rebuild when you save changes</li>
</ul>
</div>
<div class="watching">Watching for changes - will auto-rebuild and refresh</div>
</div>
</div>
`)
		return err
	})
	return layout("Build Error", errorStyle, body)
}

const errorStyle = `body.error { background: #1e1e1e; color: #d4d4d4; padding: 40px 20px; }
.container { max-width: 1200px; margin: 0 auto; }
.header { background: #ff3b30; color: white; padding: 30px; border-radius: 12px 12px 0 0; }
.header h1 { font-size: 2em; margin-bottom: 8px; }
.content { background: #2d2d2d; padding: 30px; border-radius: 0 0 12px 12px; overflow-x: auto; }
pre { background: #1e1e1e; padding: 20px; border-radius: 8px; overflow-x: auto; line-height: 1.6; border-left: 4px solid #ff3b30; font-size: 14px; font-family: 'SF Mono', Monaco, Consolas, monospace; white-space: pre-wrap; }
.help { margin-top: 30px; padding: 20px; background: rgba(102, 126, 234, 0.1); border-radius: 8px; border-left: 4px solid #667eea; }
.help h2 { color: #667eea; margin-bottom: 15px; font-size: 1.2em; }
.help ul { list-style-position: inside; line-height: 2; }
.watching { margin-top: 20px; padding: 15px; background: rgba(255, 152, 0, 0.1); border-radius: 8px; border-left: 4px solid #ff9800; text-align: center; font-weight: 600; color: #ff9800; }`

// NoOutputPage explains a successful build that produced no document.
func NoOutputPage(expected string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<body class="center">
<div class="card">
<h1>No HTML Output</h1>
<p>The build succeeded but no HTML file was found at <code>`+templ.EscapeString(expected)+`</code></p>
<p class="hint">Make sure your code calls <code>.generate()</code> on your Website</p>
</div>
`)
		return err
	})
	return layout("No Output", noOutputStyle, body)
}

const noOutputStyle = `body { background: linear-gradient(135deg, #f093fb 0%, #f5576c 100%); }
.hint { margin-top: 20px; }`

// NotFoundPage is the themed 404 for missing static files.
func NotFoundPage() templ.Component {
	return layout("Not Found", notFoundStyle, templ.Raw(`<body class="center">
<div class="card">
<h1>404</h1>
<p>File Not Found</p>
</div>
`))
}

const notFoundStyle = `body { background: #1e1e1e; }`

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	var buf bytes.Buffer
	if err := page.Render(r.Context(), &buf); err != nil {
		s.logger.Error(r.Context(), err, "Cannot render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeBody(w, status, contentTypes[".html"], buf.Bytes())
}
