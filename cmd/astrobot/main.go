package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/vbauerster/mpb/v8"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/config"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/ephemeris"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/geo"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/guard"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/interpret"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/report"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/store"
)

const configFilename = "astrobot-config.yml"

// locator resolves a birth city; *geo.Client in production.
type locator interface {
	Locate(ctx context.Context, city string) (geo.Place, error)
}

// application holds all the state shared by the Telegram handlers and the
// request workers.
type application struct {
	config    *config.AppConfig // Configuration settings
	logFile   *os.File          // File handle for error logging
	logMu     sync.Mutex        // Serializes writes to logWriter
	logWriter io.Writer         // Writer for logging (stdout or file)
	wg        sync.WaitGroup    // WaitGroup for tracking report workers
	globalSem chan struct{}     // Semaphore for limiting concurrent reports
	pbp       *mpb.Progress     // Progress bar manager

	telegramBot messenger            // Telegram client, faked in tests
	requests    chan TelegramRequest // Full report requests from Telegram

	store       store.Store           // Per-user birth data and charts
	geo         locator               // Place name to coordinates and zone
	interpreter interpret.Interpreter // Text generation for placements
	renderer    *report.Renderer      // PDF output
	locks       *guard.Keyed          // One report in flight per user
	daily       *guard.Daily          // Reports-per-day allowance
	houseSystem ephemeris.HouseSystem // House system used for every chart
}

// newApplication wires storage, geocoding, text generation and rendering from cfg.
func newApplication(cfg *config.AppConfig) (*application, error) {
	hs, err := ephemeris.ParseHouseSystem(cfg.Chart.HouseSystem)
	if err != nil {
		return nil, err
	}
	return &application{
		config:      cfg,
		logWriter:   os.Stdout,
		globalSem:   make(chan struct{}, cfg.Limits.MaxGlobalWorkers),
		requests:    make(chan TelegramRequest, cfg.Limits.QueueSize),
		locks:       guard.NewKeyed(),
		daily:       guard.NewDaily(cfg.Limits.ReportsPerDay),
		houseSystem: hs,
	}, nil
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := Setup()
	if err != nil {
		fmt.Println(err.Error())
		Pause()
		os.Exit(1)
	}

	app, err := newApplication(cfg)
	if err != nil {
		fmt.Println(err.Error())
		Pause()
		os.Exit(1)
	}

	if cfg.WriteErrorLog {
		logFilePath, err := ExecutableDirFilePath("error.log")
		if err != nil {
			app.FatalError("error log", err)
		}
		f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
		if err != nil {
			app.FatalError("error log", err)
		}
		app.logFile = f
		defer f.Close()
	}

	if cfg.ShowProgress {
		app.pbp = mpb.New(mpb.WithAutoRefresh(), mpb.WithOutput(color.Output))
		app.logWriter = app.pbp
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cfg.Store.Backend {
	case config.BackendRedis:
		rs, err := store.DialRedis(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, cfg.Store.KeyPrefix)
		if err != nil {
			app.FatalError("store", err)
		}
		app.store = rs
	default:
		app.store = store.NewMemory()
	}
	defer app.store.Close()

	app.geo = geo.New(geo.Options{
		NominatimURL: cfg.Geo.NominatimURL,
		TimezoneURL:  cfg.Geo.TimezoneURL,
		UserAgent:    cfg.Geo.UserAgent,
		Timeout:      time.Duration(cfg.Geo.TimeoutSeconds) * time.Second,
	})

	app.interpreter, err = interpret.New(ctx, cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		app.FatalError("interpreter", err)
	}

	app.renderer, err = report.NewRenderer(cfg.Report.FontPath)
	if err != nil {
		app.LogError("report font", fmt.Errorf("%w; falling back to the core font", err))
		app.renderer, _ = report.NewRenderer("")
	}

	b, err := app.newTelegramBot()
	if err != nil {
		app.FatalError("telegram", err)
	}
	app.telegramBot = b

	go func() {
		if err := app.startDelivery(ctx, b); err != nil {
			app.LogError("telegram", err)
			cancel()
		}
	}()

	app.LogInfo(fmt.Sprintf("Bot is up (%s, llm: %s, store: %s)", deliveryMode(cfg), cfg.LLM.Provider, cfg.Store.Backend))
	app.serve(ctx)

	if app.pbp != nil {
		app.pbp.Shutdown()
	}
	fmt.Println("Bot stopped.")
}

// deliveryMode names how updates arrive, for the startup log line.
func deliveryMode(cfg *config.AppConfig) string {
	if cfg.Telegram.WebhookURL != "" {
		return "webhook"
	}
	return "long polling"
}

// serve hands each queued request to a background worker until ctx ends,
// then waits for the workers. A user with a request already running gets a
// refusal instead of a second place in line.
func (app *application) serve(ctx context.Context) {
	for {
		select {
		case req := <-app.requests:
			unlock, ok := app.locks.TryLock(req.UserID)
			if !ok {
				app.sendText(ctx, req.ChatID, msgBusy, nil)
				continue
			}
			app.background(func() {
				defer unlock()
				app.handleRequest(ctx, req)
			})
		case <-ctx.Done():
			app.wg.Wait()
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				app.LogError("serve", err)
			}
			return
		}
	}
}
