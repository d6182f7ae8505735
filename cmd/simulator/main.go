package main

import (
	"encoding/json"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/smartutility/energy-insights/internal/config"
)

type reading struct {
	MeterID   int64   `json:"meter_id"`
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	// Deterministic daily curve: low overnight, peaking mid-afternoon.
	for i := 0; i < 100; i++ {
		now := time.Now().UTC()
		hour := float64(now.Hour()) + float64(now.Minute())/60
		value := 30 + 25*math.Sin((hour-6)/24*2*math.Pi)

		r := reading{
			MeterID:   1,
			Timestamp: now.Format(time.RFC3339),
			Value:     value,
		}
		payload, _ := json.Marshal(r)
		token := client.Publish(config.MQTTTopic(), 0, false, payload)
		token.Wait()
		time.Sleep(500 * time.Millisecond)
	}
	log.Info().Msg("simulation done")
}
