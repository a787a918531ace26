package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"pulsetrack/shared/auth/middleware"
	"pulsetrack/shared/response"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var upstreamErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_upstream_errors_total",
		Help: "Proxied requests that failed to reach their upstream",
	},
	[]string{"upstream"},
)

// Upstream forwards requests to one service. StripPrefix is removed from
// the path before forwarding.
type Upstream struct {
	Name        string
	Target      *url.URL
	StripPrefix string
}

func ParseUpstream(name, rawURL, strip string) (Upstream, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Upstream{}, fmt.Errorf("upstream %s: invalid url %q", name, rawURL)
	}
	return Upstream{Name: name, Target: u, StripPrefix: strip}, nil
}

// Handler builds the reverse proxy for u. The verified principal is
// forwarded as identity headers and client supplied ones are dropped.
func (u Upstream) Handler(logger *zap.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u.Target)
			pr.SetXForwarded()
			if u.StripPrefix != "" {
				path := strings.TrimPrefix(pr.In.URL.Path, u.StripPrefix)
				if !strings.HasPrefix(path, "/") {
					path = "/" + path
				}
				pr.Out.URL.Path = singleJoin(u.Target.Path, path)
				pr.Out.URL.RawPath = ""
			}
			middleware.SetIdentityHeaders(pr.In.Context(), pr.Out.Header)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			upstreamErrors.WithLabelValues(u.Name).Inc()
			logger.Error("upstream unreachable",
				zap.String("upstream", u.Name),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			response.Error(w, http.StatusBadGateway, u.Name+" unavailable")
		},
	}
}

func singleJoin(base, path string) string {
	if base == "" || base == "/" {
		return path
	}
	return strings.TrimSuffix(base, "/") + path
}
