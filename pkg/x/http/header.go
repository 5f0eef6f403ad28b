// Package http carries the proxy's header-policy helper (spec
// component B).
//
// Grounded on the teacher's pkg/x/http/header.go — the shape of a
// small, case-insensitive header utility package living at
// pkg/x/http — but the policy itself comes from
// original_source/proxy.c's handle_http_request header loop rather
// than the teacher's reverse-proxy hop-by-hop header stripping (this
// proxy forwards everything except the three headers spec §4.B names).
package http

import (
	"fmt"
	"io"
	"strings"
)

// dropped headers are never forwarded upstream; everything else,
// including Host, passes through verbatim.
var dropped = []string{"connection:", "proxy-connection:", "user-agent:"}

// WriteHeaders applies spec §4.B to the client's raw header lines
// (each already CRLF-terminated) and writes the rewritten set,
// followed by the canonical trailer headers and the blank line that
// ends the header block.
func WriteHeaders(w io.Writer, lines []string, hostname, userAgent string) error {
	hostSeen := false

	for _, line := range lines {
		lower := strings.ToLower(line)
		if hasAnyPrefix(lower, dropped) {
			continue
		}
		if strings.HasPrefix(lower, "host:") {
			hostSeen = true
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}

	if !hostSeen {
		if _, err := fmt.Fprintf(w, "Host: %s\r\n", hostname); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, "Connection: close\r\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "Proxy-Connection: close\r\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "User-Agent: %s\r\n", userAgent); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
