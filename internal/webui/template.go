package webui

import (
	"fmt"
	"html/template"
)

type templator struct {
	cfg  *Config
	tmpl map[string]*template.Template
}

func newTemplator(cfg *Config) *templator {
	return &templator{
		cfg:  cfg,
		tmpl: make(map[string]*template.Template),
	}
}

func (t *templator) makeFuncs() template.FuncMap {
	return template.FuncMap{
		"asURL": func(s string) string {
			return t.cfg.prefix + s
		},
		"asStaticURL": func(s string) string {
			return t.cfg.prefix + s + "?" + t.cfg.ServerID
		},
	}
}

func (t *templator) Get(name string) (*template.Template, error) {
	if tmpl, ok := t.tmpl[name]; ok {
		return tmpl, nil
	}
	tmpl, err := template.New(name).Funcs(t.makeFuncs()).ParseFS(
		templates, "template/base.html", fmt.Sprintf("template/%v.html", name))
	if err != nil {
		return nil, fmt.Errorf("template %v parse: %w", name, err)
	}
	t.tmpl[name] = tmpl
	return tmpl, nil
}
