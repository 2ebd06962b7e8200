package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chaos-io/bgremover/config"
	"github.com/chaos-io/bgremover/logger"
	"github.com/chaos-io/bgremover/preview"
	"github.com/chaos-io/bgremover/rembg"
	"github.com/chaos-io/bgremover/server"
	"github.com/chaos-io/bgremover/util"
	nhttp "github.com/chaos-io/bgremover/util/http"
	"github.com/chaos-io/bgremover/web"
	"github.com/chaos-io/bgremover/widget"
)

const usage = `usage:
  bgremover serve                      run the remove-bg API
  bgremover web                        run the widget host
  bgremover remove [-o out.png] <src>  remove the background of a local file or URL`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.Load(bootLogger)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, cfg, log)
	case "web":
		err = runWeb(ctx, cfg, log)
	case "remove":
		err = runRemove(ctx, cfg, log, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	remover := server.NewRemover(cfg.Server, log)
	h := server.NewHandler(remover, cfg.Server.MaxUploadBytes, log, server.WithMaxPixels(cfg.Server.MaxPixels))
	return util.Serve(ctx, cfg.Server.Addr, server.NewRouter(cfg.Server, h, log), log)
}

func runWeb(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store := preview.NewStore()
	client := rembg.NewClient(cfg.Web.RemoteURL, rembg.WithLogger(log))
	sessions := web.NewSessions(func() *widget.Widget {
		return widget.New(client, store, widget.WithLogger(log))
	}, cfg.Web.SessionTTL, log)
	defer sessions.Close()

	c := cron.New()
	if _, err := sessions.Schedule(c, cfg.Web.SweepSpec); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	c.Start()
	defer c.Stop()

	router, err := web.NewRouter(cfg.Web, web.NewHandler(sessions, store, log), log)
	if err != nil {
		return err
	}
	return util.Serve(ctx, cfg.Web.Addr, router, log)
}

func runRemove(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	out := fs.String("o", "output.png", "output file")
	timeout := fs.Duration("timeout", 2*time.Minute, "give up after this long, 0 for never")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("remove needs exactly one source path or URL")
	}
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	defer util.Trace("remove " + fs.Arg(0))()

	client := rembg.NewClient(cfg.Web.RemoteURL, rembg.WithLogger(log))
	return removeBackground(ctx, nhttp.NewHTTPClient(), client, fs.Arg(0), *out, log)
}

// removeBackground drives one widget headlessly: select src, wait for the result, write the
// output preview to out.
func removeBackground(ctx context.Context, loader nhttp.IClient, invoker widget.Invoker, src, out string, log *slog.Logger) error {
	f, err := util.LoadFile(ctx, loader, src)
	if err != nil {
		return err
	}

	store := preview.NewStore()
	w := widget.New(invoker, store, widget.WithLogger(log))
	defer func() {
		if err := w.Close(); err != nil {
			log.Warn("close widget", "error", err)
		}
	}()

	if err := w.Select(ctx, widget.NewSelectedFile(f.Name, f.MIMEType, f.Data)); err != nil {
		return err
	}
	st, err := w.WaitIdle(ctx)
	if err != nil {
		return err
	}
	if st.Err != nil {
		return st.Err
	}
	if st.Output == nil {
		return errors.New("no output produced")
	}

	data, _, err := store.Open(st.Output.ID)
	if err != nil {
		return fmt.Errorf("open output preview: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info("background removed", "src", src, "out", out, "bytes", len(data))
	return nil
}
