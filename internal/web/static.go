package web

import (
	"embed"
)

// staticFiles holds the browser client served at / and /static/.
//
//go:embed static/*
var staticFiles embed.FS
