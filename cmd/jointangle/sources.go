package main

import (
	"fmt"
	"time"

	"github.com/banshee-data/jointangle/internal/api"
	"github.com/banshee-data/jointangle/internal/config"
	"github.com/banshee-data/jointangle/internal/source"
)

// replayInterval paces replayed recordings at the firmware rate.
const replayInterval = 100 * time.Millisecond

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Empty(), nil
	}
	return config.LoadConfig(path)
}

// sourceSpec is everything needed to build a reading source.
type sourceSpec struct {
	Kind       string
	ESPIP      string
	SerialPort string
	Baud       int
	ReplayFile string
}

func specFromFlags() sourceSpec {
	return sourceSpec{
		Kind:       *sourceKind,
		ESPIP:      *espIP,
		SerialPort: *serialPort,
		Baud:       *baudRate,
		ReplayFile: *replayFile,
	}
}

// sourceFactory validates spec and returns a factory producing a new,
// unconnected source on every call.
func sourceFactory(spec sourceSpec, cfg *config.Config) (api.SourceFactory, error) {
	timeout := cfg.GetReadTimeout()
	switch spec.Kind {
	case "ws", "websocket":
		if spec.ESPIP == "" {
			return nil, fmt.Errorf("ws source needs -esp-ip or ESP_IP")
		}
		url := source.ESPURL(spec.ESPIP, cfg.GetESPPort())
		return func() (source.Source, error) {
			return source.NewWebSocketSource(url, timeout), nil
		}, nil
	case "serial":
		opts, err := source.PortOptions{BaudRate: spec.Baud}.Normalize()
		if err != nil {
			return nil, err
		}
		if spec.SerialPort == "" {
			return nil, fmt.Errorf("serial source needs -port")
		}
		return func() (source.Source, error) {
			return source.NewSerialSource(spec.SerialPort, opts, timeout), nil
		}, nil
	case "replay":
		if spec.ReplayFile == "" {
			return nil, fmt.Errorf("replay source needs -replay")
		}
		return func() (source.Source, error) {
			return source.NewReplayFile(spec.ReplayFile, replayInterval), nil
		}, nil
	case "synthetic":
		return func() (source.Source, error) {
			return source.NewSyntheticSource(source.SyntheticOptions{Pace: true}), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown source %q (want ws, serial, replay or synthetic)", spec.Kind)
}
