package config

import (
	"context"
	"os"
	"time"
)

// WatchFleet reloads fleet.yaml on change and calls onUpdate with the
// latest config. It performs an initial load before entering the loop.
func WatchFleet(ctx context.Context, path string, interval time.Duration, onUpdate func(*FleetConfig)) error {
	if path == "" {
		path = "configs/fleet.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadFleetConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				cfg, err := LoadFleetConfig(path)
				if err != nil {
					continue
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
