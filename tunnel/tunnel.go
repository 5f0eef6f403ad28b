// Package tunnel implements spec component F: the CONNECT full-duplex
// byte relay.
//
// Grounded on original_source/proxy.c's tunnel_relay: dial the origin,
// answer "200 Connection Established", then pump bytes in both
// directions until either side hits EOF or an error. The C source's
// select()-driven single-threaded pump becomes two goroutines and an
// io.Copy each — idiomatic Go's answer to "watch two file descriptors
// at once" is a goroutine per direction, not a readiness multiplexer.
// Neither side ever touches the cache or parses the payload.
package tunnel

import (
	"bufio"
	"io"
	"net"

	perr "github.com/arielsalem/cacheproxy/pkg/errors"
)

const establishedMsg = "HTTP/1.0 200 Connection Established\r\n\r\n"

// Relay dials host:port and pumps bytes between client and the origin
// until either side closes. On dial failure it writes nothing to
// client and returns a 502 BadGateway error; the caller renders the
// error page and still closes client.
func Relay(client net.Conn, w *bufio.Writer, host, port string) error {
	origin, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return perr.BadGateway(host + ":" + port).WithCause(err)
	}
	defer origin.Close()

	if _, err := w.WriteString(establishedMsg); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	done := make(chan struct{}, 2)
	pump := func(dst io.Writer, src io.Reader) {
		_, _ = io.Copy(dst, src)
		done <- struct{}{}
	}

	go pump(origin, client)
	go pump(client, origin)

	// Either direction reaching EOF/error ends the tunnel; the other
	// goroutine's io.Copy unblocks once its peer is closed above by
	// the deferred origin.Close() or by the worker closing client.
	<-done
	return nil
}
