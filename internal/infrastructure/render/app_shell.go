package render

import (
	"bytes"
	"html/template"
	"net/http"
	"path"

	"shopify-embedded-app/internal/domain"
	"shopify-embedded-app/internal/ports"

	"github.com/rs/zerolog"
)

// ShopOriginCookie is set after OAuth so the frontend knows its shop
const ShopOriginCookie = "shopOrigin"

var _ ports.Renderer = (*AppShell)(nil)

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <meta name="shopify-api-key" content="{{.APIKey}}">
    <title>Shopify App</title>
    <script src="https://cdn.shopify.com/shopifycloud/app-bridge.js"></script>
    <script>
      window.__SHOPIFY_APP__ = {
        apiKey: {{.APIKey}},
        shopOrigin: {{.ShopOrigin}},
        host: {{.Host}},
        forceRedirect: true
      };
    </script>
  </head>
  <body>
    <div id="app"></div>
    {{- range .Scripts}}
    <script src="{{.}}"></script>
    {{- end}}
  </body>
</html>
`))

type shellData struct {
	APIKey     string
	ShopOrigin string
	Host       string
	Scripts    []string
}

// AppShell renders the embedded frontend. Files under the static directory
// are served as-is; every other path gets the HTML shell.
type AppShell struct {
	static  http.FileSystem
	apiKey  string
	scripts []string
	logger  zerolog.Logger
}

// NewAppShell creates a renderer serving staticDir. scripts are extra bundle
// URLs included in the shell.
func NewAppShell(staticDir, apiKey string, scripts []string, logger zerolog.Logger) *AppShell {
	return &AppShell{
		static:  http.Dir(staticDir),
		apiKey:  apiKey,
		scripts: scripts,
		logger:  logger,
	}
}

func (a *AppShell) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if a.serveStatic(w, r) {
			return
		}
	}

	data := shellData{
		APIKey:     a.apiKey,
		ShopOrigin: shopOrigin(r),
		Host:       r.URL.Query().Get("host"),
		Scripts:    a.scripts,
	}

	var buf bytes.Buffer
	if err := shellTemplate.Execute(&buf, data); err != nil {
		a.logger.Error().Err(err).Msg("Failed to render app shell")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *AppShell) serveStatic(w http.ResponseWriter, r *http.Request) bool {
	name := path.Clean("/" + r.URL.Path)
	if name == "/" {
		return false
	}

	f, err := a.static.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

func shopOrigin(r *http.Request) string {
	if shop := r.URL.Query().Get("shop"); domain.ValidShopDomain(shop) {
		return shop
	}
	if c, err := r.Cookie(ShopOriginCookie); err == nil && domain.ValidShopDomain(c.Value) {
		return c.Value
	}
	return ""
}
