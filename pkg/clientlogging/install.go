package clientlogging

import (
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ErikKalkoken/clientlogging/internal/httptransport"
)

// Transport returns a transport which logs all exchanges made through base.
// If base is nil, [http.DefaultTransport] is used.
func (ic *Interceptor) Transport(base http.RoundTripper) http.RoundTripper {
	return httptransport.LoggedTransport{Transport: base, Interceptor: ic}
}

// InstallClient installs a new interceptor on an HTTP client by wrapping its transport.
func InstallClient(c *http.Client, cfg Config) *Interceptor {
	ic := New(cfg)
	c.Transport = ic.Transport(c.Transport)
	return ic
}

// Install installs a new interceptor on the log hooks of a retryablehttp client.
// Hooks already configured on the client keep working.
func Install(c *retryablehttp.Client, cfg Config) *Interceptor {
	ic := New(cfg)
	httptransport.InstallHooks(c, ic)
	return ic
}
