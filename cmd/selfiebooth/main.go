package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Chandru0712/SelfieBooth/internal/booth"
	"github.com/Chandru0712/SelfieBooth/internal/camera"
	"github.com/Chandru0712/SelfieBooth/internal/config"
	"github.com/Chandru0712/SelfieBooth/internal/debug"
	"github.com/Chandru0712/SelfieBooth/internal/frames"
	"github.com/Chandru0712/SelfieBooth/internal/hw/button"
	"github.com/Chandru0712/SelfieBooth/internal/hw/gpio"
	"github.com/Chandru0712/SelfieBooth/internal/logic/compose"
	"github.com/Chandru0712/SelfieBooth/internal/store"
	"github.com/Chandru0712/SelfieBooth/internal/web"
)

func main() {
	// CLI flags
	listenAddr := flag.String("listen", ":8080", "address for the kiosk web server")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system; logs are teed onto the websocket hub so
	// the kiosk UI can show them.
	debug.Init(cfg.Defaults.DebugLevel)
	hub := web.NewHub()
	debug.SetOutput(io.MultiWriter(os.Stdout, hub))

	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Camera mode", cfg.Camera.Mode)

	// Frame overlay catalog
	debug.Step(1, "Loading frame catalog")
	catalog, err := frames.NewCatalog(cfg.Frames.Dir)
	if err != nil {
		log.Fatalf("load frame catalog failed: %v", err)
	}

	// Record store
	debug.Step(2, "Opening record store")
	debug.Value("Database", cfg.Storage.Path)
	records, err := store.Open(cfg.Storage.Path, cfg.Storage.ThumbWidth)
	if err != nil {
		log.Fatalf("open record store failed: %v", err)
	}
	defer func() {
		if err := records.Close(); err != nil {
			log.Printf("closing record store failed: %v", err)
		}
	}()

	// Camera manager; acquisition is lazy, the first capture or preview
	// brings the source up.
	debug.Step(3, "Creating camera manager")
	manager := camera.NewManager(cfg)
	defer manager.Release()
	go func() {
		// Warm the source up front so the kiosk preview is live at boot.
		if _, err := manager.Initialize(ctx); err != nil {
			debug.Error(err)
		}
	}()
	if cfg.RemoteMode() {
		debug.Source("remote", cfg.Camera.RemoteBaseURL)
	} else {
		debug.Source("local", "device")
	}

	// Compositor and booth flow
	debug.Step(4, "Wiring capture pipeline")
	compositor := compose.New(catalog, cfg.Defaults.FallbackWidth, cfg.Defaults.FallbackHeight, cfg.Defaults.MaxZoom)
	flow := booth.New(manager, compositor, records, hub)

	// Optional physical shutter button
	if cfg.Button.Enabled {
		debug.Step(5, "Initializing shutter button")
		debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
		gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			log.Fatalf("init GPIO failed: %v", err)
		}
		defer func() {
			if err := gpioDriver.Close(); err != nil {
				log.Printf("closing GPIO driver failed: %v", err)
			}
		}()

		watcher := button.NewWatcher(gpioDriver, cfg.Button.Pin, cfg.ButtonPoll(), cfg.ButtonDebounce(), func() {
			if flow.Busy() {
				return
			}
			go func() {
				req := booth.SnapRequest{SessionID: walkUpSession(records, cfg)}
				if _, err := flow.Countdown(ctx, cfg.Defaults.CountdownSec, req); err != nil {
					debug.Error(err)
				}
			}()
		})
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("button watcher stopped: %v", err)
			}
		}()
	}

	// Web server
	handlers := web.NewHandlers(flow, manager, catalog, records, hub, web.StaticFS(), cfg.Defaults.CountdownSec)
	srv := web.NewServer(*listenAddr, handlers)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("web server: %v", err)
	}
}

// walkUpSession returns the newest session, creating one in the default
// category when the booth is idle. Button presses always land somewhere.
func walkUpSession(records *store.Store, cfg *config.Config) string {
	sessions, err := records.Sessions(1, 0)
	if err == nil && len(sessions) > 0 {
		return sessions[0].ID
	}
	session, err := records.CreateSession(cfg.Frames.DefaultCategory)
	if err != nil {
		debug.Error(err)
		return ""
	}
	return session.ID
}
