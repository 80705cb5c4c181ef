package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fallwatch/internal/alert"
	"fallwatch/internal/config"
	"fallwatch/internal/monitor"
	"fallwatch/internal/motion"
	"fallwatch/internal/replay"
	"fallwatch/internal/source"
	"fallwatch/internal/state"
	"fallwatch/internal/web"
)

func runService(ctx context.Context, cfg config.Config, logs *web.LogBuffer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := source.FromConfig(cfg.Source)
	if err != nil {
		return err
	}

	store, err := state.OpenSQLite(cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	alerts, err := buildAlerts(cfg.Alert)
	if err != nil {
		return err
	}
	defer alerts.Close()

	events := web.NewEventBroadcaster()
	opts := monitor.Options{Alerts: alerts, Publish: events.Publish, Logf: log.Printf}

	if cfg.Record.Enable {
		w, err := replay.CreateWriter(cfg.Record.Path)
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		defer w.Close()
		opts.Tap = recordTap(w)
		log.Printf("recording samples path=%s", cfg.Record.Path)
	}

	mon := monitor.New(monitor.Config{
		MinInterval: cfg.Pipeline.MinInterval,
		Cooldown:    cfg.Alert.Cooldown,
		Device:      cfg.Alert.Device,
		Debug:       cfg.Pipeline.Debug,
	}, src, store, opts)
	defer mon.Close()

	log.Printf("fallwatch starting source=%s state=%s alerts=%d", src.Name(), cfg.State.Path, len(alerts))

	if cfg.Web.Enable {
		status := web.NewStatus()
		status.SetStatic(src.Name(), cfg.Alert.Device)
		go func() {
			err := web.Serve(ctx, cfg.Web.Listen, web.Deps{
				Status:  status,
				Monitor: mon,
				Journal: store,
				Logs:    logs,
				Events:  events,
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
				cancel()
			}
		}()
		log.Printf("web listening addr=%s", cfg.Web.Listen)
	}

	started, err := mon.Resume(ctx, cfg.State.AlwaysStart)
	if err != nil {
		return err
	}
	if !started && !cfg.Web.Enable {
		log.Printf("monitoring is stopped and the web API is disabled; use --start to begin")
	}

	<-ctx.Done()
	log.Printf("fallwatch stopping")
	return nil
}

// buildAlerts always includes the log notifier.
func buildAlerts(cfg config.AlertConfig) (alert.Fanout, error) {
	out := alert.Fanout{alert.LogNotifier{}}
	fail := func(err error) (alert.Fanout, error) {
		_ = out.Close()
		return nil, err
	}

	if cfg.MQTT.Enable {
		m, err := alert.NewMQTT(alert.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
			Retain:   cfg.MQTT.Retain,
		})
		if err != nil {
			return fail(err)
		}
		out = append(out, m)
	}
	if cfg.UDP.Enable {
		u, err := alert.NewUDP(cfg.UDP.Dest)
		if err != nil {
			return fail(err)
		}
		out = append(out, u)
	}
	if cfg.GPIO.Enable {
		g, err := alert.OpenGPIOLine(cfg.GPIO.Chip, cfg.GPIO.Pin, cfg.GPIO.Pulse)
		if err != nil {
			return fail(err)
		}
		out = append(out, g)
	}
	return out, nil
}

// recordTap logs the first write error only.
func recordTap(w *replay.Writer) func(motion.Sample) {
	failed := false
	return func(s motion.Sample) {
		if err := w.WriteSample(s); err != nil && !failed {
			failed = true
			log.Printf("record write failed: %v", err)
		}
	}
}

func record(ctx context.Context, cfg config.SourceConfig, path string) error {
	if cfg.Kind == config.SourceReplay {
		return errors.New("record: source.kind 'replay' cannot be recorded")
	}
	src, err := source.FromConfig(cfg)
	if err != nil {
		return err
	}
	w, err := replay.CreateWriter(path)
	if err != nil {
		return err
	}

	n := 0
	var werr error
	err = src.Run(ctx, func(s motion.Sample) {
		if werr != nil {
			return
		}
		if werr = w.WriteSample(s); werr == nil {
			n++
		}
	})
	cerr := w.Close()
	log.Printf("recorded samples=%d path=%s source=%s", n, path, src.Name())

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if werr != nil {
		return fmt.Errorf("record: %w", werr)
	}
	return cerr
}
