package web

import "embed"

// TemplatesFS embeds HTML templates for server-side rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the app shell assets served through the asset cache.
//
//go:embed static/*
var StaticFS embed.FS
