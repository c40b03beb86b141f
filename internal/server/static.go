// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	_ "embed"
	"net/http"
)

//go:embed static/demo.html
var demoPage []byte

// handleDemo handles GET /demo and GET /.
//
// The page is a self-contained browser rendition of the chat widget
// that exercises the same gateway endpoints the embedded widget uses.
// Pass ?key=<app_key> to try a registered application.
func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(demoPage)
}
