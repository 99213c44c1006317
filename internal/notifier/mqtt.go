// Package notifier publishes recognition events over MQTT for consumers
// such as automation systems. Publishing is optional and best-effort.
package notifier

import (
	"encoding/json"
	"fmt"
	"time"

	"facematch/internal/config"
	"facematch/internal/core/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

var logFields = log.Fields{
	"component": "notifier",
}

// MQTTNotifier publishes one JSON event per recognition request.
type MQTTNotifier struct {
	config config.MQTTConfig
	client mqtt.Client
}

// recognitionEvent is the published payload.
type recognitionEvent struct {
	Timestamp       time.Time          `json:"timestamp"`
	FacesDetected   int                `json:"faces_detected"`
	RecognizedFaces []models.FaceMatch `json:"recognized_faces"`
	Method          string             `json:"method"`
}

// NewMQTTNotifier connects to the broker. A nil notifier is returned when
// MQTT is disabled; the caller treats that as "no notifications".
func NewMQTTNotifier(cfg config.MQTTConfig) (*MQTTNotifier, error) {
	if !cfg.Enabled {
		log.WithFields(logFields).Info("MQTT notifications are disabled in configuration")
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.WithFields(logFields).Infof("Connected to MQTT broker %s:%d", cfg.Broker, cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithFields(logFields).WithError(err).Warn("MQTT connection lost, reconnecting")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timeout connecting to MQTT broker %s:%d", cfg.Broker, cfg.Port)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", err)
	}

	return &MQTTNotifier{config: cfg, client: client}, nil
}

// PublishRecognition publishes the recognition result. Failures are logged,
// never surfaced; notifications do not gate the request path.
func (n *MQTTNotifier) PublishRecognition(resp *models.RecognitionResponse) {
	event := recognitionEvent{
		Timestamp:       time.Now().UTC(),
		FacesDetected:   resp.FacesDetected,
		RecognizedFaces: resp.RecognizedFaces,
		Method:          resp.Method,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to encode recognition event")
		return
	}

	token := n.client.Publish(n.config.Topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		log.WithFields(logFields).Warnf("Timeout publishing to %s", n.config.Topic)
		return
	}
	if err := token.Error(); err != nil {
		log.WithFields(logFields).WithError(err).Warnf("Failed to publish to %s", n.config.Topic)
	}
}

// Stop disconnects from the broker.
func (n *MQTTNotifier) Stop() {
	n.client.Disconnect(250)
}
