// Package framemux provides an abstraction over the link to the external pose
// estimator, with the ability for multiple clients to subscribe to the frame
// lines it emits and to send commands to the single estimator device.
package framemux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"

	"tailscale.com/tsweb"

	"github.com/banshee-data/pushup.report/internal/monitoring"
)

// ErrWriteFailed reports a short write of a command to the estimator.
var ErrWriteFailed = errors.New("failed to write to estimator port")

// subscriberBuffer is how many lines a subscriber may fall behind before
// lines are dropped for it.
const subscriberBuffer = 16

// maxLineSize bounds a single frame line; a full 33 landmark pose is well
// under 8KiB, several poses per frame fit comfortably.
const maxLineSize = 1 << 20

var logf = monitoring.Component("framemux")

var sendCommandTemplate = template.Must(template.New("send-command").Parse(`<!doctype html>
<html><head><title>Estimator command</title></head>
<body>
<h1>Send a command to the pose estimator</h1>
<form method="post" action="/debug/send-command-api">
<input name="command" placeholder="mode fast">
<button type="submit">Send</button>
</form>
<h2>Live frames</h2>
<pre id="tail"></pre>
<script>
const es = new EventSource("/debug/tail");
const out = document.getElementById("tail");
es.onmessage = (e) => { out.textContent = (e.data + "\n" + out.textContent).slice(0, 20000); };
</script>
</body></html>
`))

// Mux owns one estimator port. Lines read from the port are fanned out to
// subscribers and commands are written to it one at a time.
type Mux[T Port] struct {
	port    T
	subs    *hub
	writeMu sync.Mutex
}

// Interface is what the rest of the service needs from an estimator link.
type Interface interface {
	// Subscribe returns an id for Unsubscribe and a channel of frame lines.
	Subscribe() (string, chan string)
	Unsubscribe(string)
	SendCommand(string) error
	// Initialize configures the estimator's detector mode and camera.
	Initialize(detector, camera string) error
	// Monitor pumps lines to subscribers until ctx ends or the port does.
	Monitor(context.Context) error
	Close() error

	// AttachAdminRoutes mounts debugging endpoints under /debug/. They are
	// reachable only from localhost or the tailnet.
	AttachAdminRoutes(*http.ServeMux)
}

func New[T Port](port T) *Mux[T] {
	return &Mux[T]{port: port, subs: newHub(subscriberBuffer)}
}

func (m *Mux[T]) Subscribe() (string, chan string) { return m.subs.add() }

func (m *Mux[T]) Unsubscribe(id string) { m.subs.remove(id) }

// Initialize selects the detector mode and camera and asks for NDJSON output.
func (m *Mux[T]) Initialize(detector, camera string) error {
	for _, command := range []string{
		"mode " + detector,
		"camera " + camera,
		"output ndjson",
	} {
		if err := m.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send start command %q: %w", command, err)
		}
	}
	return nil
}

// SendCommand writes command as a single newline-terminated line.
func (m *Mux[T]) SendCommand(command string) error {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	n, err := io.WriteString(m.port, command)
	if err != nil {
		return err
	}
	if n < len(command) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrWriteFailed, n, len(command))
	}
	return nil
}

// Monitor returns nil when the port reaches EOF or the mux is closed, the
// read error if the port fails, and ctx.Err() on cancellation.
func (m *Mux[T]) Monitor(ctx context.Context) error {
	lines := make(chan string)
	end := make(chan error, 1)
	go m.readLines(ctx, lines, end)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-lines:
			if !m.subs.broadcast(line) {
				return nil
			}
		case err := <-end:
			if m.subs.isClosed() {
				return nil
			}
			return err
		}
	}
}

// readLines delivers every non-blank line, then the scanner's final error.
// Scan blocks on the port, so it cannot share Monitor's select loop.
func (m *Mux[T]) readLines(ctx context.Context, lines chan<- string, end chan<- error) {
	sc := bufio.NewScanner(m.port)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case lines <- line:
		case <-ctx.Done():
			return
		}
	}
	end <- sc.Err()
}

// Close drops all subscribers and releases the port. Later calls are no-ops.
func (m *Mux[T]) Close() error {
	if !m.subs.shutdown() {
		return nil
	}
	return m.port.Close()
}

func (m *Mux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("send-command", "send a command to the pose estimator", m.commandPage)
	debug.HandleSilentFunc("send-command-api", m.commandAPI)
	debug.HandleSilentFunc("tail", TailHandler(m).ServeHTTP)
}

func (m *Mux[T]) commandPage(w http.ResponseWriter, r *http.Request) {
	var page strings.Builder
	if err := sendCommandTemplate.Execute(&page, nil); err != nil {
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, page.String())
}

func (m *Mux[T]) commandAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	command := strings.TrimSpace(r.FormValue("command"))
	if command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}
	if err := m.SendCommand(command); err != nil {
		logf("admin command %q failed: %v", command, err)
		http.Error(w, "Failed to write command", http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "Wrote command %q to estimator", command)
}

// TailHandler streams every line from m as Server-Sent Events until the
// client disconnects or the mux closes.
func TailHandler(m interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := m.Subscribe()
		defer m.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
