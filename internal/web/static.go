package web

import (
	"embed"
)

// staticFiles holds the embedded kiosk UI.
// The final binary includes all files under static/.
//
//go:embed static/*
var staticFiles embed.FS
