package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/config"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/device"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
)

// ackTimeout bounds how long command subcommands wait for the matching ack.
// The head unit answers within one loop pass, so a second is generous.
const ackTimeout = 2 * time.Second

var (
	configFile string
	portFlag   string
	useMock    bool
)

func main() {
	if err := buildCLI().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "foamctl",
		Short: "Bench controller for the foam stroke counter head unit",
		Long: `foamctl talks to the stroke counter head unit over USB serial:
- list candidate serial ports
- watch the live packet stream
- ping the device, reset counters, select the active job`,
		Version: "0.1.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "serial port override (e.g., COM3 or /dev/ttyACM0)")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "use mocked device instead of serial port")

	rootCmd.AddCommand(buildPortsCommand())
	rootCmd.AddCommand(buildWatchCommand())
	rootCmd.AddCommand(buildPingCommand())
	rootCmd.AddCommand(buildResetCommand())
	rootCmd.AddCommand(buildJobCommand())

	return rootCmd
}

func buildPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List available serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := device.Ports()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Println("No serial ports found")
				return nil
			}
			for _, p := range ports {
				if p.Description != "" && p.Description != p.Name {
					fmt.Printf("%s\t%s\n", p.Name, p.Description)
				} else {
					fmt.Println(p.Name)
				}
			}
			return nil
		},
	}
}

func buildWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the live packet stream until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			for {
				select {
				case p, ok := <-dev.Packets():
					if !ok {
						return nil
					}
					fmt.Printf("%s %s\n", p.Timestamp.Format(time.RFC3339), p.Message.Encode())
				case <-sigChan:
					log.Println("Stopping watch")
					return nil
				}
			}
		},
	}
}

func buildPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the USB link with a ping/pong round trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			start := time.Now()
			if err := dev.Ping(); err != nil {
				return err
			}
			if _, err := awaitAck(dev, "pong"); err != nil {
				return err
			}
			fmt.Printf("pong in %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func buildResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Zero both stroke counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			if err := dev.ResetCounters(); err != nil {
				return err
			}
			ack, err := awaitAck(dev, "counters reset")
			if err != nil {
				return err
			}
			fmt.Println(ack)
			return nil
		},
	}
}

func buildJobCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Select the active job tagged onto heartbeats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			if err := dev.SelectJob(args[0]); err != nil {
				return err
			}
			ack, err := awaitAck(dev, "job set: ")
			if err != nil {
				return err
			}
			fmt.Println(ack)
			return nil
		},
	}
}

// openDevice loads the configuration and connects to the configured device.
func openDevice() (device.Device, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if portFlag != "" {
		cfg.Serial.Port = portFlag
	}

	var dev device.Device
	if useMock {
		dev = device.NewMock(&cfg.Mock)
	} else {
		dev = device.New(cfg.Serial.Port, cfg.Serial.Baud, device.DefaultBufferSize)
	}

	if err := dev.Connect(); err != nil {
		return nil, err
	}
	return dev, nil
}

// awaitAck reads packets until an ack with the given message prefix arrives.
// Other packets (hello, strokes, heartbeats) are passed over silently.
func awaitAck(dev device.Device, prefix string) (string, error) {
	deadline := time.After(ackTimeout)
	for {
		select {
		case p, ok := <-dev.Packets():
			if !ok {
				return "", fmt.Errorf("device closed before ack")
			}
			if p.Type == packet.TypeAck && strings.HasPrefix(p.Message.Message, prefix) {
				return p.Message.Message, nil
			}
		case <-deadline:
			return "", fmt.Errorf("no ack within %s", ackTimeout)
		}
	}
}
