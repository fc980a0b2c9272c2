package webui

import (
	"embed"
	"io/fs"
)

//go:embed static
var rawStaticData embed.FS

//go:embed template
var templates embed.FS

var staticData fs.FS

func init() {
	sub, err := fs.Sub(rawStaticData, "static")
	if err != nil {
		panic(err)
	}
	staticData = sub
}
