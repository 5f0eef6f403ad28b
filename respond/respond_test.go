package respond_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "github.com/arielsalem/cacheproxy/pkg/errors"
	"github.com/arielsalem/cacheproxy/respond"
)

func TestErrorWritesWireFormat(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := respond.Error(w, perr.BadGateway("example.com"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "HTTP/1.0 502 Bad Gateway\r\n")
	assert.Contains(t, out, "Content-type: text/html\r\n")
	assert.Contains(t, out, "Content-length: ")
	assert.Contains(t, out, "example.com")
}

func TestErrorBadRequest(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	require.NoError(t, respond.Error(w, perr.BadRequest("ftp://nope")))
	assert.Contains(t, buf.String(), "HTTP/1.0 400 Bad Request\r\n")
}
