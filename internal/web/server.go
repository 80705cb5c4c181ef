package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"time"

	"fallwatch/internal/monitor"
	"fallwatch/internal/state"
)

//go:embed assets/*
var embeddedAssets embed.FS

// Controller is the monitor surface the API drives. Implementations must be
// safe to call concurrently.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reset()
	Snapshot() monitor.Snapshot
}

// Journal lists persisted events, newest first.
type Journal interface {
	RecentEvents(ctx context.Context, limit int) ([]state.EventRecord, error)
}

type Deps struct {
	Status  *Status
	Monitor Controller
	Journal Journal           // optional
	Logs    *LogBuffer        // optional
	Events  *EventBroadcaster // optional
}

func Handler(d Deps) http.Handler {
	if d.Status == nil {
		d.Status = NewStatus()
	}
	mux := http.NewServeMux()

	assetsFS, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		assetsFS = nil
	}

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		var mon monitor.Snapshot
		if d.Monitor != nil {
			mon = d.Monitor.Snapshot()
		}
		writeJSON(w, http.StatusOK, d.Status.Snapshot(time.Now().UTC(), mon))
	})

	mux.HandleFunc("/api/monitor/start", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) || !haveMonitor(w, d.Monitor) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := d.Monitor.Start(ctx); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, monitor.ErrAlreadyRunning) {
				code = http.StatusConflict
			}
			http.Error(w, err.Error(), code)
			return
		}
		writeOK(w)
	})

	mux.HandleFunc("/api/monitor/stop", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) || !haveMonitor(w, d.Monitor) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := d.Monitor.Stop(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeOK(w)
	})

	mux.HandleFunc("/api/monitor/reset", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) || !haveMonitor(w, d.Monitor) {
			return
		}
		d.Monitor.Reset()
		writeOK(w)
	})

	mux.Handle("/api/events", eventsHandler(d.Journal))
	if d.Events != nil {
		mux.Handle("/api/events/ws", eventStreamHandler(d.Events))
	}
	if d.Logs != nil {
		mux.Handle("/api/logs", d.Logs.Handler())
	}

	if assetsFS != nil {
		fileServer := http.FileServer(http.FS(assetsFS))
		mux.Handle("/assets/", http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			fileServer.ServeHTTP(w, r)
		})))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		if r.URL.Path != "/" && (path.Dir(r.URL.Path) == "/api" || path.Dir(r.URL.Path) == "/assets") {
			http.NotFound(w, r)
			return
		}
		if assetsFS == nil {
			http.Error(w, "ui unavailable, use /api/status", http.StatusInternalServerError)
			return
		}
		b, err := fs.ReadFile(assetsFS, "index.html")
		if err != nil {
			http.Error(w, "ui unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	})

	return mux
}

// Serve runs the API until ctx is done.
func Serve(ctx context.Context, listenAddr string, d Deps) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func haveMonitor(w http.ResponseWriter, c Controller) bool {
	if c == nil {
		http.Error(w, "monitor unavailable", http.StatusNotFound)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{\"ok\":true}\n"))
}
