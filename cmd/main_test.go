package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/signupdesk/internal/config"
	"github.com/okian/signupdesk/internal/env/envtest"
	"github.com/okian/signupdesk/pkg/logger"
	"github.com/okian/signupdesk/pkg/metrics"
)

func TestNewServer(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer api.Close()

		cfg := config.New()
		cfg.APIBaseURL = api.URL

		convey.Convey("When the server is built", func() {
			srv, err := newServer(cfg, envtest.New(), logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it listens on the configured address with bounded timeouts", func() {
				convey.So(srv.Addr, convey.ShouldEqual, ":8080")
				convey.So(srv.WriteTimeout, convey.ShouldBeGreaterThan, 2*cfg.RequestTimeout())
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})

			convey.Convey("Then it serves the page", func() {
				rec := httptest.NewRecorder()
				srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `id="activities-list"`)
			})
		})

		convey.Convey("When the API URL is relative", func() {
			cfg.APIBaseURL = "/api"
			_, err := newServer(cfg, envtest.New(), logger.Nop())

			convey.Convey("Then building fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given metrics settings in the configuration", t, func() {
		cfg := config.New()
		cfg.MetricsEnabled = false
		cfg.MetricsNamespace = "campus"

		convey.Convey("When the global manager is rebuilt from them", func() {
			metrics.Init(metricsOptions(cfg)...)
			defer metrics.Init(metricsOptions(config.New())...)

			convey.Convey("Then page metrics are off and names use the namespace", func() {
				convey.So(metrics.Enabled(), convey.ShouldBeFalse)
				metrics.RecordHTTPRequest("/", http.MethodGet, "200", 1)
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				convey.So(families, convey.ShouldNotBeEmpty)
				convey.So(families[0].GetName(), convey.ShouldStartWith, "campus_")
			})
		})
	})
}
