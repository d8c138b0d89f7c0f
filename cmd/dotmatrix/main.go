package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/dmgx/dotmatrix/dotmatrix"
	"github.com/dmgx/dotmatrix/dotmatrix/backend"
	"github.com/dmgx/dotmatrix/dotmatrix/backend/headless"
	"github.com/dmgx/dotmatrix/dotmatrix/backend/sdl2"
	"github.com/dmgx/dotmatrix/dotmatrix/backend/terminal"
	"github.com/dmgx/dotmatrix/dotmatrix/input/action"
	"github.com/dmgx/dotmatrix/dotmatrix/input/event"
	"github.com/dmgx/dotmatrix/dotmatrix/video"
)

const frameTime = time.Second / 60

func main() {
	app := cli.NewApp()
	app.Name = "dotmatrix"
	app.Description = "A Game Boy (DMG) emulator"
	app.Usage = "dotmatrix [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Display backend to use: terminal or sdl2",
			Value: "terminal",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: a temp directory for headless interval snapshots, the current directory for manual snapshots)",
		},
		cli.StringFlag{
			Name:  "save-dir",
			Usage: "Directory for battery-backed save files",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window scale factor for the SDL2 backend",
			Value: 4,
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	emu, err := dotmatrix.NewWithFile(romPath)
	if err != nil {
		return err
	}

	if saveDir := c.String("save-dir"); saveDir != "" {
		if err := os.MkdirAll(saveDir, 0755); err != nil {
			return fmt.Errorf("failed to create save directory: %v", err)
		}
		emu.SetSaveDir(saveDir)
	}
	defer emu.Shutdown()

	// manual snapshots (F9 in the terminal backend, F12 on SDL2)
	snapshotDir := c.String("snapshot-dir")
	if snapshotDir == "" {
		snapshotDir = "."
	}
	romName := strings.TrimSuffix(filepath.Base(romPath), filepath.Ext(romPath))
	emu.SetSnapshotFunc(func(frame *video.FrameBuffer) {
		path := filepath.Join(snapshotDir, fmt.Sprintf("%s_frame_%d.png", romName, emu.GetFrameCount()))
		if err := headless.SavePNG(frame, path); err != nil {
			slog.Error("Failed to save snapshot", "path", path, "error", err)
			return
		}
		slog.Info("Saved frame snapshot", "path", path)
	})

	b, err := selectBackend(c, romPath)
	if err != nil {
		return err
	}

	config := backend.BackendConfig{
		Title: fmt.Sprintf("dotmatrix - %s", filepath.Base(romPath)),
		Scale: c.Int("scale"),
	}
	if err := b.Init(config); err != nil {
		return err
	}
	defer b.Cleanup()

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for range ticker.C {
		emu.RunUntilFrame()

		events, err := b.Update(emu.GetCurrentFrame())
		if err != nil {
			return err
		}

		for _, ev := range events {
			if ev.Action == action.EmulatorQuit {
				return nil
			}
			emu.HandleAction(ev.Action, ev.Type == event.Press)
		}
	}

	return nil
}

func selectBackend(c *cli.Context, romPath string) (backend.Backend, error) {
	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return nil, errors.New("headless mode requires --frames option with a positive value")
		}

		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		slog.SetDefault(slog.New(handler))

		snapshotConfig, err := snapshotConfigFor(c, romPath)
		if err != nil {
			return nil, err
		}

		return headless.New(frames, snapshotConfig), nil
	}

	switch c.String("backend") {
	case "terminal":
		return terminal.New(), nil
	case "sdl2":
		return sdl2.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", c.String("backend"))
	}
}

func snapshotConfigFor(c *cli.Context, romPath string) (headless.SnapshotConfig, error) {
	interval := c.Int("snapshot-interval")
	config := headless.SnapshotConfig{
		Enabled:  interval > 0,
		Interval: interval,
	}

	if !config.Enabled {
		return config, nil
	}

	dir := c.String("snapshot-dir")
	if dir == "" {
		tempDir, err := os.MkdirTemp("", "dotmatrix-snapshots-*")
		if err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %v", err)
		}
		dir = tempDir
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return config, fmt.Errorf("failed to create snapshot directory: %v", err)
	}

	romName := filepath.Base(romPath)
	config.ROMName = strings.TrimSuffix(romName, filepath.Ext(romName))
	config.Directory = dir

	return config, nil
}
