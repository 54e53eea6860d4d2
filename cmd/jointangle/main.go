package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/jointangle/internal/db"
	"github.com/banshee-data/jointangle/internal/version"
)

var (
	listen        = flag.String("listen", ":8000", "HTTP listen address")
	dbPath        = flag.String("db", "jointangle.db", "SQLite database path")
	recordingsDir = flag.String("recordings", "data/recordings", "Directory for raw and angle recordings")
	sourceKind    = flag.String("source", "ws", "Reading source: ws, serial, replay or synthetic")
	espIP         = flag.String("esp-ip", os.Getenv("ESP_IP"), "ESP32 address for the ws source (default $ESP_IP)")
	serialPort    = flag.String("port", "/dev/ttyUSB0", "Serial device for the serial source")
	baudRate      = flag.Int("baud", 115200, "Serial baud rate")
	replayFile    = flag.String("replay", "", "Raw .jsonl recording for the replay source")
	configFile    = flag.String("config", "", "JSON config file (defaults apply to unset fields)")
	mqttBroker    = flag.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (disabled when empty)")
	mqttPrefix    = flag.String("mqtt-prefix", "jointangle", "MQTT topic prefix")
	live          = flag.Bool("live", false, "Stream angles from the source to /api/live while serving")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	command := "serve"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, args, os.Stdout); err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func run(ctx context.Context, command string, args []string, out io.Writer) error {
	switch command {
	case "serve", "record":
		// flags may also follow the command
		if err := flag.CommandLine.Parse(args); err != nil {
			return err
		}
		if flag.NArg() > 0 {
			return fmt.Errorf("unexpected arguments: %v", flag.Args())
		}
		if command == "serve" {
			return runServe(ctx)
		}
		return runRecord(ctx, out)
	case "migrate":
		return db.RunMigrateCommand(args, *dbPath, out)
	case "version":
		fmt.Fprintln(out, version.Get())
		return nil
	case "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Fprintf(flag.CommandLine.Output(), `jointangle - knee angle estimation from two IMUs

Usage: jointangle [flags] <command> [flags]

Commands:
  serve      Run the HTTP API (default)
  record     Run one calibrate, measure and save session and print the result
  migrate    Manage database migrations (up, down, status)
  version    Show version information
  help       Show this help message

Flags:
`)
	flag.PrintDefaults()
}
