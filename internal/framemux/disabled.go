package framemux

import (
	"context"
	"net/http"
)

// DisabledMux stands in for the estimator when frames only arrive over
// HTTP. Subscribers still get channels that close on Unsubscribe or Close,
// so readers unblock during shutdown.
type DisabledMux struct {
	subs *hub
}

func NewDisabledMux() *DisabledMux {
	return &DisabledMux{subs: newHub(0)}
}

func (d *DisabledMux) Subscribe() (string, chan string) { return d.subs.add() }

func (d *DisabledMux) Unsubscribe(id string) { d.subs.remove(id) }

func (d *DisabledMux) SendCommand(string) error { return nil }

func (d *DisabledMux) Initialize(string, string) error { return nil }

func (d *DisabledMux) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func (d *DisabledMux) Close() error {
	d.subs.shutdown()
	return nil
}

func (d *DisabledMux) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/estimator-disabled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("estimator disabled"))
	})
}

var (
	_ Interface = (*DisabledMux)(nil)
	_ Interface = (*Mux[*ReplayPort])(nil)
)
