package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/config"
)

var ErrConfigCreated = errors.New("config file created")

// ExecutableDirFilePath returns name resolved next to the running binary.
func ExecutableDirFilePath(name string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), name), nil
}

// Setup finds and parses the config file. ASTROBOT_CONFIG overrides the
// default location next to the executable. A missing file is replaced by
// the template and reported as ErrConfigCreated.
func Setup() (*config.AppConfig, error) {
	configPath := os.Getenv("ASTROBOT_CONFIG")
	if configPath == "" {
		p, err := ExecutableDirFilePath(configFilename)
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(configPath, []byte(config.Template), 0o600); err != nil {
			return nil, fmt.Errorf("write config template: %w", err)
		}
		return nil, fmt.Errorf("%w at %s: set chart.orb and the bot token, then restart", ErrConfigCreated, configPath)
	}

	cfg, err := config.Parse(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return cfg, nil
}

// Pause waits for enter so a double-clicked binary does not close its
// window before the user reads the error.
func Pause() {
	fmt.Print("Press enter to exit...")
	bufio.NewReader(os.Stdin).ReadString('\n')
}

func (app *application) LogError(caller string, err error) {
	message := fmt.Sprintf("%s: %s", caller, err.Error())
	fmt.Fprintln(app.logWriter, color.RedString(message))
	if app.logFile != nil {
		app.logMu.Lock()
		fmt.Fprintf(app.logFile, "%s %s\n", time.Now().Format(time.RFC3339), message)
		app.logMu.Unlock()
	}
}

func (app *application) LogInfo(message string) {
	fmt.Fprintln(app.logWriter, message)
}

func (app *application) FatalError(caller string, err error) {
	app.LogError(caller, err)
	Pause()
	os.Exit(1)
}

// background runs fn on its own goroutine once a global worker slot is free.
func (app *application) background(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.globalSem <- struct{}{}
		defer func() { <-app.globalSem }()
		fn()
	}()
}
