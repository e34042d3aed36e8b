package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/daemon"
	"github.com/jmylchreest/stackdraw/internal/dbus"
	"github.com/jmylchreest/stackdraw/internal/draw"
	"github.com/jmylchreest/stackdraw/internal/model"
	"github.com/jmylchreest/stackdraw/internal/store"
)

var serveOpts struct {
	output       string
	report       string
	history      string
	historyLimit int
	monitor      bool
	tick         time.Duration
	watch        bool
	notify       bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep a live stack from the session bus and render it on change",
	Long: `Run as a notification daemon: claim org.freedesktop.Notifications on the
session bus, keep the live stack (replacement, stack tags, timeouts) and
rewrite the stack image every time it changes.

With --monitor the bus name is not claimed; stackdraw observes the Notify
calls another daemon receives, and the NotificationClosed signals it emits,
and mirrors its stack instead.

The config file is watched and reloaded while running.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveOpts.output, "output", "o", defaultStackImage(),
		"PNG rewritten on every change (removed while the stack is empty)")
	serveCmd.Flags().StringVar(&serveOpts.report, "report", "",
		"JSON geometry report rewritten alongside the image (optional)")
	serveCmd.Flags().StringVar(&serveOpts.history, "history", "",
		"Append every notification to this JSONL log (render it later with --source)")
	serveCmd.Flags().IntVar(&serveOpts.historyLimit, "history-limit", 1000,
		"Entries kept in the history log at startup (0 = unlimited)")
	serveCmd.Flags().BoolVar(&serveOpts.monitor, "monitor", false,
		"Observe another daemon instead of claiming the bus name")
	serveCmd.Flags().DurationVar(&serveOpts.tick, "tick", daemon.DefaultTick,
		"Timeout check interval")
	serveCmd.Flags().BoolVar(&serveOpts.watch, "watch", true,
		"Reload the config file when it changes")
	serveCmd.Flags().BoolVar(&serveOpts.notify, "notify-internal", true,
		"Post notifications about reloads and errors onto the stack")
}

func defaultStackImage() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "stackdraw", "stack.png")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("starting stackdraw", "version", version, "monitor", serveOpts.monitor)

	d, err := daemon.New(settings, daemon.Options{
		OutputPath: serveOpts.output,
		ReportPath: serveOpts.report,
		Tick:       serveOpts.tick,
		Scale:      settings.Scale,
	}, logger)
	if err != nil {
		return err
	}
	defer d.Shutdown()

	if serveOpts.history != "" {
		history, err := store.NewJSONLPersistence(serveOpts.history)
		if err != nil {
			return err
		}
		defer history.Close()
		if err := history.Trim(serveOpts.historyLimit); err != nil {
			logger.Warn("failed to trim history log", "path", serveOpts.history, "error", err)
		}
		d.SetHistory(history)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := daemon.NewInternalNotifier(logger)
	notifier.SetEnabled(serveOpts.notify && !serveOpts.monitor)

	if serveOpts.monitor {
		monitor := dbus.NewMonitor(logger)
		monitor.SetNotifyHandler(d.Add)
		monitor.SetCloseHandler(func(id uint32) { d.Close(id) })
		if err := monitor.Start(); err != nil {
			return fmt.Errorf("failed to start D-Bus monitor: %w", err)
		}
		defer monitor.Stop()
	} else {
		server := dbus.NewNotificationServer(logger)
		server.SetServerInfo(dbus.ServerInfo{
			Name:        "stackdraw",
			Vendor:      "stackdraw",
			Version:     version,
			SpecVersion: dbus.DefaultServerInfo().SpecVersion,
		})
		server.SetNotifyHandler(d.Add)
		server.SetCloseHandler(d.Close)
		d.SetExpireHandler(func(n *model.Notification) {
			if err := server.CloseWithReason(n.DBusID, dbus.CloseReasonExpired); err != nil {
				logger.Warn("failed to signal expiry", "id", n.DBusID, "error", err)
			}
		})
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()

		notifier.SetNotifyHandler(server.NotifyInternal)
	}

	var lastErr string
	d.SetRenderHandler(func(frame *draw.Frame) {
		if len(frame.Dropped) == 0 {
			lastErr = ""
			return
		}
		if msg := frame.Dropped[0].Error(); msg != lastErr {
			lastErr = msg
			notifier.NotifyRenderError(frame.Dropped[0])
		}
	})

	if serveOpts.watch {
		watcher, err := config.NewWatcher(globalOpts.configPath, settings, logger)
		if err != nil {
			logger.Warn("config watching disabled", "error", err)
		} else {
			watcher.SetReloadCallback(func(s *config.Settings) {
				if globalOpts.scale > 0 {
					s.Scale = globalOpts.scale
				}
				if err := d.Reload(s); err != nil {
					notifier.NotifyConfigError(err)
					return
				}
				notifier.NotifyConfigReloaded()
			})
			watcher.SetErrorCallback(func(err error) {
				notifier.NotifyConfigError(err)
			})
			if err := watcher.Start(ctx); err != nil {
				logger.Warn("config watching disabled", "error", err)
			} else {
				defer watcher.Stop()
			}
		}
	}

	notifier.NotifyStartup(version)
	logger.Info("stackdraw ready", "output", serveOpts.output)

	err = d.Run(ctx)
	logger.Info("stackdraw stopped")
	return err
}
