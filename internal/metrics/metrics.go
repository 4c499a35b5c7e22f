package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auth core: token exchanges by
// grant type, consent branches, logins, and fail-closed rejections.
type Metrics struct {
	TokenExchanges    *prometheus.CounterVec
	ConsentRequired   prometheus.Counter
	Logins            *prometheus.CounterVec
	AuthRejections    prometheus.Counter
	SessionsDestroyed prometheus.Counter
}

// New creates a Metrics instance with all auth metrics registered on reg.
// Pass prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokenExchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_auth_token_exchanges_total",
			Help: "Total token exchanges against the identity provider",
		}, []string{"grant", "result"}),
		ConsentRequired: factory.NewCounter(prometheus.CounterOpts{
			Name: "workflow_auth_consent_required_total",
			Help: "Total JWT-grant exchanges answered with consent_required",
		}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_auth_logins_total",
			Help: "Total successful logins by grant method",
		}, []string{"method"}),
		AuthRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "workflow_auth_rejections_total",
			Help: "Total protected calls rejected for a missing or expired token",
		}),
		SessionsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "workflow_auth_sessions_destroyed_total",
			Help: "Total sessions destroyed by logout or fail-closed rejection",
		}),
	}
}
