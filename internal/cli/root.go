// Package cli implements the operator command line for the face matching
// engine.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"facematch/internal/config"
	"facematch/internal/detector"
	"facematch/internal/logger"
	"facematch/internal/notifier"
	"facematch/internal/recognition"
	"facematch/internal/storage"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "facematch",
	Short: "Face matching and gallery management engine",
	Long: `facematch matches faces in images against a gallery of enrolled
faces. Detection and embedding extraction are delegated to an external
service; matching, gallery consistency and recognition logging happen here.

The gallery lives in a SQLite store when reachable and degrades to an
in-process store otherwise; see the health command for the current mode.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
}

func initEnv() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// engine bundles the wired service with its shutdown hooks.
type engine struct {
	service *recognition.Service
	manager *storage.Manager
	mqtt    *notifier.MQTTNotifier
}

func (e *engine) close() {
	if e.mqtt != nil {
		e.mqtt.Stop()
	}
	e.manager.Stop()
}

// buildEngine wires config, logging, storage, detector and notifier into a
// ready recognition service.
func buildEngine() (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	opener := func() (storage.Store, error) {
		return storage.OpenSQLite(cfg.DB.File)
	}
	manager := storage.NewManager(cfg.Storage, cfg.Detector.Dimension, opener, storage.NewMemoryStore())
	manager.Start()

	det := detector.NewAPIClient(cfg.Detector)

	var eventSink recognition.Notifier
	mq, err := notifier.NewMQTTNotifier(cfg.MQTT)
	if err != nil {
		log.Warnf("Failed to initialize MQTT notifier: %v. Continuing without notifications.", err)
	} else if mq != nil {
		eventSink = mq
	}

	service := recognition.NewService(manager, det, eventSink, cfg.Matcher, cfg.Detector)

	return &engine{service: service, manager: manager, mqtt: mq}, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
