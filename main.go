package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"TacticalBoard/internal/cli"
	"TacticalBoard/internal/config"
	"TacticalBoard/internal/export"
	tbnet "TacticalBoard/internal/net"
	"TacticalBoard/internal/state"
	"TacticalBoard/internal/storage"
	"TacticalBoard/internal/ui"
)

const usage = `Usage:
  tacticalboard [flags] [tacticalboard://host:port]   open the board
  tacticalboard serve [flags]                         run the project server
  tacticalboard admin [flags]                         manage server users and projects
  tacticalboard export [flags] <project.json> <out.png|out.pdf>

Run a mode with -h for its flags.`

func main() {
	mode, args := "gui", os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "serve", "admin", "export":
			mode, args = args[0], args[1:]
		case "help", "-h", "--help":
			fmt.Println(usage)
			return
		}
	}

	cfg, err := config.Load(mode, args)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.SetupLogging(); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	switch mode {
	case "serve":
		err = runServer(cfg)
	case "admin":
		err = runAdmin(cfg)
	case "export":
		err = runExport(cfg)
	default:
		err = runGUI(cfg)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runGUI(cfg *config.Config) error {
	log.Println("Starting board")
	joinAddr := ""
	if len(cfg.Args) > 0 && strings.HasPrefix(cfg.Args[0], tbnet.JoinScheme) {
		addr, ok := tbnet.ParseJoinLink(cfg.Args[0])
		if !ok {
			return fmt.Errorf("invalid join link %q", cfg.Args[0])
		}
		joinAddr = addr
	}
	return ui.RunApp(cfg, joinAddr)
}

func openStore(cfg *config.Config) (storage.Store, error) {
	store, err := storage.Open(cfg.Storage.Type, cfg.Storage.Path, cfg.Storage.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Printf("[STORE] Using %s storage", cfg.Storage.Type)
	return store, nil
}

func runServer(cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Advertise {
		mdnsServer, err := tbnet.Advertise(cfg.Server.Port)
		if err != nil {
			log.Printf("[NET] mDNS disabled: %v", err)
		} else {
			defer mdnsServer.Shutdown()
		}
	}
	log.Printf("Share this link with your team: %s", tbnet.JoinLink(cfg.Server.Host, cfg.Server.Port))
	return tbnet.NewServer(store).ListenAndServe(ctx, cfg.ListenAddr())
}

func runAdmin(cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".tacticalboard_history")
	}
	rl, err := cli.NewReadline(history)
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()
	return cli.NewCLI(store, rl).Loop()
}

// runExport renders a saved project without opening a window.
func runExport(cfg *config.Config) error {
	if len(cfg.Args) != 2 {
		return fmt.Errorf("export needs <project.json> <output>\n\n%s", usage)
	}
	in, out := cfg.Args[0], cfg.Args[1]

	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	p, err := state.DecodeProject(data)
	if err != nil {
		return err
	}
	s := state.NewSession(p.Background)
	if err := s.LoadProject(p); err != nil {
		return err
	}

	compositor, err := export.NewCompositor(export.Options{
		Watermark:          cfg.Export.Watermark,
		ShowLabelPanel:     cfg.Export.LabelPanel,
		ShowWatermarkPanel: cfg.Export.WatermarkPanel,
	})
	if err != nil {
		return err
	}
	// Catalog maps resolve against the config; anything else against the
	// project file.
	loader := &export.ImageLoader{}
	ref, ok := cfg.MapImage(p.Background)
	if !ok {
		ref, loader.Dir = p.Background, filepath.Dir(in)
	}
	exporter := &export.Exporter{Compositor: compositor, Loader: loader}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	var buf bytes.Buffer
	err = exporter.WriteTo(ctx, &buf, format, ref, s.Scene(), export.PDFOptions{
		Title:    cfg.Export.Title,
		Subtitle: cfg.Export.Subtitle,
		Cover:    cfg.Export.Cover,
	})
	if err != nil {
		return err
	}
	// The output file is only created once rendering succeeded.
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	log.Printf("[EXPORT] Wrote %s", out)
	return nil
}
