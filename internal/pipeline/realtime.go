// Package pipeline wires the surveillance components together and runs the
// realtime mode.
package pipeline

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/victorakor/mall-surveillance-system/internal/api"
	"github.com/victorakor/mall-surveillance-system/internal/camera"
	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/detection"
	"github.com/victorakor/mall-surveillance-system/internal/errors"
	"github.com/victorakor/mall-surveillance-system/internal/logging"
	"github.com/victorakor/mall-surveillance-system/internal/mqtt"
	"github.com/victorakor/mall-surveillance-system/internal/observability"
	"github.com/victorakor/mall-surveillance-system/internal/processor"
	"github.com/victorakor/mall-surveillance-system/internal/security"
)

// RunRealtime starts the full surveillance stack and blocks until the
// process receives an interrupt or termination signal.
func RunRealtime(settings *conf.Settings) error {
	logging.Info("Starting mall surveillance system",
		"version", settings.Version,
		"build_date", settings.BuildDate,
	)

	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database output enabled in configuration").
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer closeStore(store)

	// the pipeline always boots stopped, workers start on request
	if err := store.SetSystemRunning(false); err != nil {
		logging.Warn("Failed to reset running state", "error", err)
	}

	sec := security.NewManager(settings)
	if err := bootstrapAdmin(settings, store, sec); err != nil {
		return err
	}

	detector, err := detection.New(settings)
	if err != nil {
		return err
	}
	defer detector.Close()

	metrics := observability.NewMetrics()
	detector.SetMetrics(metrics)
	sse := api.NewSSEHandler(metrics, logging.ForService("sse"))

	var publisher processor.AlertPublisher
	var mqttClient mqtt.Client
	if settings.Realtime.MQTT.Enabled {
		mqttClient = mqtt.NewClient(settings)
		connectCtx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		if err := mqttClient.Connect(connectCtx); err != nil {
			// alerts still flow to the dashboard without a broker
			logging.Warn("MQTT connection failed, continuing without broker", "error", err)
		}
		cancel()
		publisher = mqttClient
		defer mqttClient.Disconnect()
	}

	proc := processor.New(settings, store, sse, publisher, metrics)
	defer proc.Shutdown()

	cameras := camera.NewManager(settings, store, detector, proc)
	defer cameras.StopAll()

	server := api.New(settings, store, cameras, proc, sec, metrics, sse)
	server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	logging.Info("Shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP server shutdown failed", "error", err)
	}

	return nil
}

// bootstrapAdmin makes sure the configured admin account exists so the
// dashboard is reachable on first boot.
func bootstrapAdmin(settings *conf.Settings, store datastore.Interface, sec *security.Manager) error {
	email := settings.Security.AdminEmail
	if email == "" {
		logging.Warn("No admin email configured, skipping admin bootstrap")
		return nil
	}

	hash, err := sec.HashPassword(settings.Security.AdminPassword)
	if err != nil {
		return err
	}

	admin, err := store.EnsureDefaultAdmin("Administrator", email, hash)
	if err != nil {
		return err
	}

	logging.Info("Admin account ready", "email", admin.Email, "uid", admin.UID)
	return nil
}

func closeStore(store datastore.Interface) {
	if err := store.Close(); err != nil {
		logging.Error("Failed to close datastore", "error", err)
	}
}
