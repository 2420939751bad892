package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAgentURLHTTP(t *testing.T) {
	assert := assert.New(t)

	a, err := parseAgentURL("http://localhost:8126")
	assert.NoError(err)
	assert.Equal("http", a.scheme)
	assert.Equal("localhost:8126", a.endpoint)
	assert.Equal("http://localhost:8126/v0.4/traces", a.httpURL(tracesEndpoint))
}

func TestParseAgentURLHTTPS(t *testing.T) {
	assert := assert.New(t)

	a, err := parseAgentURL("https://agent.internal:443")
	assert.NoError(err)
	assert.Equal("https://agent.internal:443/v0.4/traces", a.httpURL(tracesEndpoint))
}

func TestParseAgentURLUnixSocket(t *testing.T) {
	assert := assert.New(t)

	a, err := parseAgentURL("unix:///var/run/datadog/apm.socket")
	assert.NoError(err)
	assert.Equal("unix", a.scheme)
	assert.Equal("/var/run/datadog/apm.socket", a.endpoint)
	assert.Equal("http://unix/v0.4/traces", a.httpURL(tracesEndpoint))
}

func TestParseAgentURLHTTPUnix(t *testing.T) {
	assert := assert.New(t)

	a, err := parseAgentURL("http+unix:///var/run/datadog/apm.socket")
	assert.NoError(err)
	assert.Equal("http://unix/v0.4/traces", a.httpURL(tracesEndpoint))
}

func TestParseAgentURLHTTPSUnix(t *testing.T) {
	assert := assert.New(t)

	a, err := parseAgentURL("https+unix:///var/run/datadog/apm.socket")
	assert.NoError(err)
	assert.Equal("https://unix/v0.4/traces", a.httpURL(tracesEndpoint))
}

func TestParseAgentURLMissingSeparator(t *testing.T) {
	assert := assert.New(t)

	_, err := parseAgentURL("localhost:8126")
	assert.Error(err)
	kind, ok := Kind(err)
	assert.True(ok)
	assert.Equal(KindURLMissingSeparator, kind)
}

func TestParseAgentURLUnsupportedScheme(t *testing.T) {
	assert := assert.New(t)

	_, err := parseAgentURL("ftp://localhost")
	assert.Error(err)
	kind, ok := Kind(err)
	assert.True(ok)
	assert.Equal(KindURLUnsupportedScheme, kind)
}

func TestParseAgentURLRelativeUnixPath(t *testing.T) {
	assert := assert.New(t)

	_, err := parseAgentURL("unix://relative/path")
	assert.Error(err)
	kind, ok := Kind(err)
	assert.True(ok)
	assert.Equal(KindURLUnixSocketPathNotAbsolute, kind)
}

func TestNewHTTPClientDialsUnixSocket(t *testing.T) {
	assert := assert.New(t)

	a, err := parseAgentURL("unix:///tmp/does-not-exist.sock")
	assert.NoError(err)
	client := newHTTPClient(a, 0)
	assert.NotNil(client.Transport)
}
