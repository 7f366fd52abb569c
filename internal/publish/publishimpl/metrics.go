package publishimpl

import (
	pkgmetrics "github.com/orgball2608/storyshare/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK           = "ok"
	resultInvalidMedia = "invalid_media"
	resultUploadError  = "upload_error"
	resultRecordError  = "record_error"
)

type metrics struct {
	published       *prometheus.CounterVec
	orphaned        prometheus.Counter
	avatarFallbacks prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyshare_publish_total",
				Help: "Story publish attempts by result",
			},
			[]string{"result"},
		),
		orphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyshare_orphaned_objects_total",
			Help: "Objects uploaded whose story record could not be written",
		}),
		avatarFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyshare_avatar_fallbacks_total",
			Help: "Profile updates that fell back to the placeholder avatar",
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.published, err = pkgmetrics.Register(reg, m.published); err != nil {
		return nil, err
	}
	if m.orphaned, err = pkgmetrics.Register(reg, m.orphaned); err != nil {
		return nil, err
	}
	if m.avatarFallbacks, err = pkgmetrics.Register(reg, m.avatarFallbacks); err != nil {
		return nil, err
	}
	return m, nil
}
