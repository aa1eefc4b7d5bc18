package main

// foambridge exposes the head unit's packet stream to browsers.
//
// It owns the single serial connection and relays in both directions:
// - every device packet is broadcast to all WebSocket clients
// - client messages ({"type":"PING"} etc.) are forwarded to the device
//
// The dashboard page only needs a WebSocket; no serial access from the
// browser is required.

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/config"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/device"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked device instead of serial port")
		listenFlag = flag.String("listen", "", "Listen address override (e.g., :8737)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *listenFlag != "" {
		cfg.Bridge.Listen = *listenFlag
	}

	var dev device.Device
	if *mockFlag {
		dev = device.NewMock(&cfg.Mock)
		log.Println("Using mocked device")
	} else {
		dev = device.New(cfg.Serial.Port, cfg.Serial.Baud, device.DefaultBufferSize)
	}

	if err := dev.Connect(); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	if !*mockFlag {
		log.Printf("Connected to serial port: %s", cfg.Serial.Port)
	}

	h := newHub(dev)

	// Pump device packets into the hub until the device closes.
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for p := range dev.Packets() {
			h.broadcast(p.Message.Encode())
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Bridge.Path, h.handleWS)

	server := &http.Server{
		Addr:    cfg.Bridge.Listen,
		Handler: mux,
	}

	go func() {
		log.Printf("Bridge listening on %s%s", cfg.Bridge.Listen, cfg.Bridge.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	dev.Close()
	<-pumpDone
}
