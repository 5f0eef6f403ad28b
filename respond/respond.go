// Package respond implements spec component H: rendering an HTML
// error page to the client.
//
// Grounded on original_source/proxy.c's clienterror: the same
// status-line/Content-type/Content-length/blank-line/body framing,
// rebuilt with one fmt.Sprintf for the body + bufio.Writer instead of repeated
// sprintf-into-the-same-buffer (the C source's accidental quadratic
// self-append pattern).
package respond

import (
	"bufio"
	"fmt"

	perr "github.com/arielsalem/cacheproxy/pkg/errors"
)

// Error writes err's HTML error page to w and flushes it, per spec
// §4.H. All writes are fully flushed before return.
func Error(w *bufio.Writer, err *perr.Error) error {
	body := fmt.Sprintf(
		"<html><title>CacheProxy Error</title><body bgcolor=\"ffffff\">\r\n"+
			"%d: %s\r\n<p>%s: %s\r\n<hr><em>cacheproxy web proxy server</em>\r\n",
		err.Code, err.ShortMsg, err.LongMsg, err.Cause,
	)

	if _, werr := fmt.Fprintf(w, "HTTP/1.0 %d %s\r\n", err.Code, err.ShortMsg); werr != nil {
		return werr
	}
	if _, werr := fmt.Fprint(w, "Content-type: text/html\r\n"); werr != nil {
		return werr
	}
	if _, werr := fmt.Fprintf(w, "Content-length: %d\r\n\r\n", len(body)); werr != nil {
		return werr
	}
	if _, werr := fmt.Fprint(w, body); werr != nil {
		return werr
	}
	return w.Flush()
}
