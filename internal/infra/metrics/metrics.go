package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves every registered collector. Call MustRegister first.
func Handler() http.Handler {
	return promhttp.Handler()
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
