package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// MetricObservation is the message shape the ingestion topic carries
type MetricObservation struct {
	PlayerUUID string  `json:"player_uuid"`
	MetricKey  string  `json:"metric_key"`
	Value      float64 `json:"value"`
}

// metricKeys matches the seeded metric definitions
var metricKeys = []string{
	"wynncraft_playtime_hours",
	"wynncraft_wars",
	"wynncraft_mobs_killed",
	"wynncraft_chests_opened",
	"wynncraft_dungeons_completed",
	"wynncraft_raids_completed",
	"hypixel_network_level",
	"hypixel_karma",
	"hypixel_achievement_points",
}

func randomValue(key string) float64 {
	switch key {
	case "wynncraft_playtime_hours":
		return float64(rand.Intn(3000)) + rand.Float64()
	case "hypixel_network_level":
		return float64(rand.Intn(250)) + rand.Float64()
	case "hypixel_karma":
		return float64(rand.Intn(10_000_000))
	case "wynncraft_mobs_killed":
		return float64(rand.Intn(500_000))
	default:
		return float64(rand.Intn(5000))
	}
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "metric-observations", "Kafka topic")
	totalPlayers := flag.Int("players", 1000, "Number of distinct players to simulate")
	updatesPerSecond := flag.Int("rate", 100, "Observations per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Printf("Metric observation producer\n")
	fmt.Printf("  Brokers: %s\n", *brokers)
	fmt.Printf("  Topic:   %s\n", *topic)
	fmt.Printf("  Players: %d\n", *totalPlayers)
	fmt.Printf("  Rate:    %d/sec\n\n", *updatesPerSecond)

	// Stable pool of player uuids so repeated observations overwrite rather
	// than grow the population without bound
	players := make([]string, *totalPlayers)
	for i := range players {
		players[i] = strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	sendObservation := func(obs MetricObservation) {
		data, err := json.Marshal(obs)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(obs.PlayerUUID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	interval := time.Second / time.Duration(*updatesPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var sentCount int64

	shutdown := func() {
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\nCompleted. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	fmt.Println("Press Ctrl+C to stop")

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			shutdown()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("\nDuration reached, shutting down...")
				shutdown()
				return
			}

			key := metricKeys[rand.Intn(len(metricKeys))]
			obs := MetricObservation{
				PlayerUUID: players[rand.Intn(len(players))],
				MetricKey:  key,
				Value:      randomValue(key),
			}
			sendObservation(obs)
			atomic.AddInt64(&sentCount, 1)

		case <-statsTicker.C:
			fmt.Printf("[%s] Queued: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&sentCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
