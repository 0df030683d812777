package handler

import (
	"embed"
	"html/template"
	"io"

	"github.com/andleeb4898/pantry/internal/domain/model"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// echo.Renderer の実装
type TemplateRenderer struct {
	templates *template.Template
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"safeImage": safeImage,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{templates: t}, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// 画像の data URI だけ src に出す。それ以外は空にする
func safeImage(s string) template.URL {
	if !model.IsImageDataURI(s) {
		return ""
	}
	return template.URL(s)
}
