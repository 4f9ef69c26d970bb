/*
Copyright (c) the execunit-ipc authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter serves a Recorder's registry on /metrics, the same
// registry-plus-promhttp shape as ptp/sptp/stats.PrometheusExporter, but
// without that type's separate scrape loop: this package's counters are
// pushed inline by the transport/role code, not pulled from another process.
type Exporter struct {
	server *http.Server
}

// NewExporter builds an Exporter bound to addr (e.g. ":9110") serving rec's
// registry.
func NewExporter(addr string, rec *Recorder) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{}))
	return &Exporter{server: &http.Server{Addr: addr, Handler: mux}}
}

// Run serves until ctx is canceled, then shuts down gracefully. It is meant
// to be run inside an errgroup alongside the probe's main operation, the
// pattern cmd/execunit-probe uses via golang.org/x/sync/errgroup.
func (e *Exporter) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- e.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return e.server.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
