package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(content))
}

func mustParseTemplate(name string) *template.Template {
	tmpl, err := ParseTemplate(name)
	if err != nil {
		panic("Failed to parse " + name + " template: " + err.Error())
	}
	return tmpl
}

var errorPage = mustParseTemplate("error.html")

// HiddenField is an authorize parameter carried through the consent form.
type HiddenField struct {
	Name  string
	Value string
}

// ConsentPageData contains data for rendering the consent page
type ConsentPageData struct {
	AppName     string
	ClientName  string
	RedirectURI string
	Action      string
	Fields      []HiddenField
}

// ErrorPageData contains data for rendering the error page
type ErrorPageData struct {
	AppName string
	Title   string
	Message string
}

// renderError shows an HTML error page. Authorize errors are never redirected
// because the redirect URI has not been verified.
func (s *Server) renderError(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := errorPage.Execute(w, ErrorPageData{AppName: s.config.GetAppName(), Title: title, Message: message}); err != nil {
		log.Err(err).Msg("rendering error page")
	}
}
