// rfid-sim publishes card scans the way the reader firmware does.
package main

import (
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/dkeye/Attendance/internal/adapters/broker"
	"github.com/dkeye/Attendance/internal/config"
)

func main() {
	url := flag.String("broker", "", "broker URL (default from config)")
	topic := flag.String("topic", "", "scan topic (default from config)")
	field := flag.String("field", "", "card field name (default from config)")
	cards := flag.StringSlice("card", nil, "card id to scan, repeatable")
	interval := flag.Duration("interval", time.Second, "delay between scans")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	bc := cfg.Broker
	if *url != "" {
		bc.URL = *url
	}
	if *topic != "" {
		bc.Topic = *topic
	}
	if *field != "" {
		bc.CardField = *field
	}
	if len(*cards) == 0 {
		log.Fatal().Msg("at least one --card is required")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(bc.URL).
		SetClientID(broker.ClientID("rfid-sim-")).
		SetUsername(bc.Username).
		SetPassword(bc.Password).
		SetCleanSession(true).
		SetConnectTimeout(bc.ConnectTimeout)
	client := mqtt.NewClient(opts)
	if tok := client.Connect(); tok.Wait() && tok.Error() != nil {
		log.Fatal().Err(tok.Error()).Str("url", bc.URL).Msg("connect")
	}
	defer client.Disconnect(250)

	if bc.AckTopic != "" {
		client.Subscribe(bc.AckTopic, byte(bc.QoS), func(_ mqtt.Client, m mqtt.Message) {
			log.Info().Str("topic", m.Topic()).RawJSON("ack", m.Payload()).Msg("ack")
		})
	}

	for i, card := range *cards {
		if i > 0 {
			time.Sleep(*interval)
		}
		payload, err := broker.EncodeScan(bc.CardField, card)
		if err != nil {
			log.Fatal().Err(err).Msg("encode")
		}
		tok := client.Publish(bc.Topic, byte(bc.QoS), false, payload)
		tok.Wait()
		if err := tok.Error(); err != nil {
			log.Error().Err(err).Str("card", card).Msg("publish")
			continue
		}
		log.Info().Str("topic", bc.Topic).Str("card", card).Msg("scan published")
	}
	// give acks a moment to arrive
	time.Sleep(*interval)
}
