package voicebot

import "embed"

// WebFiles holds the browser page and its script.
//
//go:embed web/*
var WebFiles embed.FS
