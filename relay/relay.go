// Package relay implements spec component E: one HTTP/1.0 proxy
// request, consulting the cache, streaming the origin's response back
// to the client, and opportunistically capturing it into the cache.
//
// Grounded on original_source/proxy.c's handle_http_request, with the
// scratch-buffer bug spec §4.E/§9 calls out fixed: object_size only
// ever accumulates up to MAX_OBJECT_SIZE, and admission to the cache
// is gated on the *true* total never having exceeded it, not on the
// capped scratch length.
package relay

import (
	"bufio"
	"io"
	"net"

	"github.com/arielsalem/cacheproxy/cache"
	"github.com/arielsalem/cacheproxy/metrics"
	perr "github.com/arielsalem/cacheproxy/pkg/errors"
	xhttp "github.com/arielsalem/cacheproxy/pkg/x/http"
	"github.com/arielsalem/cacheproxy/request"
	"github.com/arielsalem/cacheproxy/uri"
)

const chunkSize = 8192

// Result describes how a relay attempt ended, for access logging.
type Result struct {
	CacheHit        bool
	BytesFromOrigin int
	Cached          bool
}

// Relay executes spec §4.E against c. w is the client's buffered
// writer; req is the already-parsed client request; userAgent is the
// header-policy trailer value (spec §4.B).
func Relay(c *cache.Cache, w *bufio.Writer, req *request.Request, userAgent string) (Result, error) {
	if payload, ok := c.Get(req.URI); ok {
		metrics.CacheHitsTotal.Inc()
		if _, err := w.Write(payload); err != nil {
			return Result{CacheHit: true}, err
		}
		return Result{CacheHit: true, BytesFromOrigin: len(payload)}, w.Flush()
	}
	metrics.CacheMissesTotal.Inc()

	parsed, err := uri.Parse(req.URI)
	if err != nil {
		return Result{}, perr.BadRequest(req.URI).WithCause(err)
	}

	origin, err := net.Dial("tcp", net.JoinHostPort(parsed.Host, parsed.Port))
	if err != nil {
		return Result{}, perr.BadGateway(parsed.Host).WithCause(err)
	}
	defer origin.Close()

	if err := writeUpstreamRequest(origin, req, parsed, userAgent); err != nil {
		return Result{}, err
	}

	return streamAndCache(c, w, origin, req.URI)
}

func writeUpstreamRequest(origin net.Conn, req *request.Request, parsed uri.Parsed, userAgent string) error {
	ow := bufio.NewWriter(origin)

	if _, err := ow.WriteString(req.Method + " " + parsed.Path + " HTTP/1.0\r\n"); err != nil {
		return err
	}
	if err := xhttp.WriteHeaders(ow, req.Headers, parsed.Host, userAgent); err != nil {
		return err
	}
	return ow.Flush()
}

// streamAndCache reads the origin in bounded chunks, writing each to
// the client while appending to a scratch buffer capped at the
// cache's object size limit. The true total byte count is tracked
// separately from the capped scratch length, so an oversize response
// is still relayed in full but never partially cached (spec §4.E
// steps 5-6, and the §9 fix for the source's capture bug).
func streamAndCache(c *cache.Cache, w *bufio.Writer, origin net.Conn, requestURI string) (Result, error) {
	maxObject := c.MaxObjectSize()
	scratch := make([]byte, 0, maxObject)
	total := 0
	overflowed := false

	buf := make([]byte, chunkSize)
	for {
		n, readErr := origin.Read(buf)
		if n > 0 {
			total += n
			if !overflowed {
				if len(scratch)+n <= maxObject {
					scratch = append(scratch, buf[:n]...)
				} else {
					overflowed = true
				}
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return Result{BytesFromOrigin: total}, werr
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			// Origin read error mid-response: no wire error, just
			// stop relaying and don't cache (spec §7).
			_ = w.Flush()
			return Result{BytesFromOrigin: total}, nil
		}
	}

	if err := w.Flush(); err != nil {
		return Result{BytesFromOrigin: total}, err
	}

	res := Result{BytesFromOrigin: total}
	if !overflowed && total <= maxObject {
		c.Put(requestURI, scratch)
		res.Cached = true
	}
	return res, nil
}
