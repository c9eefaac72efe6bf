// Package config parses command-line flags for the host and viewer binaries.
// An optional YAML file given with -config supplies values that explicit
// flags override.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Capture facility names accepted by -capture.
const (
	FacilityAuto         = "auto"
	FacilityCoreGraphics = "coregraphics"
	FacilityScreenshot   = "screenshot"
)

// HostConfig holds configuration for the host binary.
type HostConfig struct {
	Listen       string   `yaml:"listen"`
	SignalingURL string   `yaml:"signaling"`
	PublisherID  string   `yaml:"id"`
	AllowList    []string `yaml:"allow"`
	SkipOverlap  bool     `yaml:"skip_overlap"`
	Facility     string   `yaml:"capture"`
	Verbose      bool     `yaml:"verbose"`
}

// ViewerConfig holds configuration for the viewer binary.
type ViewerConfig struct {
	StreamURL    string `yaml:"stream"`
	SignalingURL string `yaml:"signaling"`
	PublisherID  string `yaml:"publisher"`
	ViewerID     string `yaml:"id"`
	Verbose      bool   `yaml:"verbose"`
}

// UseSignaling reports whether the viewer should connect over WebRTC.
func (c *ViewerConfig) UseSignaling() bool {
	return c.SignalingURL != ""
}

// ParseHostFlags parses args (without the program name) for the host binary.
func ParseHostFlags(args []string) (*HostConfig, error) {
	cfg := &HostConfig{
		Listen:   "127.0.0.1:8090",
		Facility: FacilityAuto,
	}
	path := configPath(args)
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet("backdrop-host", flag.ContinueOnError)
	fs.String("config", path, "YAML config file")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address for /stream, /healthz and /metrics")
	fs.StringVar(&cfg.SignalingURL, "signaling", cfg.SignalingURL, "Signaling server WebSocket URL (empty disables WebRTC)")
	fs.StringVar(&cfg.PublisherID, "id", cfg.PublisherID, "Publisher ID (auto-generated if empty)")
	fs.Var((*listValue)(&cfg.AllowList), "allow", "Comma-separated bundle IDs or app names left visible (default: wallpaper agent, Wallpaper, Dock)")
	fs.BoolVar(&cfg.SkipOverlap, "skip-overlap", cfg.SkipOverlap, "Drop a tick while the previous one is still capturing")
	fs.StringVar(&cfg.Facility, "capture", cfg.Facility, "Capture facility: auto, coregraphics or screenshot")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.Facility {
	case FacilityAuto, FacilityCoreGraphics, FacilityScreenshot:
	default:
		return nil, fmt.Errorf("config: unknown capture facility %q", cfg.Facility)
	}
	if cfg.PublisherID == "" {
		cfg.PublisherID = "publisher-" + shortID()
	}
	return cfg, nil
}

// ParseViewerFlags parses args (without the program name) for the viewer binary.
func ParseViewerFlags(args []string) (*ViewerConfig, error) {
	cfg := &ViewerConfig{
		StreamURL: "ws://127.0.0.1:8090/stream",
	}
	path := configPath(args)
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet("backdrop-viewer", flag.ContinueOnError)
	fs.String("config", path, "YAML config file")
	fs.StringVar(&cfg.StreamURL, "stream", cfg.StreamURL, "Host stream WebSocket URL")
	fs.StringVar(&cfg.SignalingURL, "signaling", cfg.SignalingURL, "Signaling server WebSocket URL (switches to WebRTC)")
	fs.StringVar(&cfg.PublisherID, "publisher", cfg.PublisherID, "Publisher ID to connect to over WebRTC")
	fs.StringVar(&cfg.ViewerID, "id", cfg.ViewerID, "Viewer ID (auto-generated if empty)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.UseSignaling() && cfg.PublisherID == "" {
		return nil, errors.New("config: -publisher is required with -signaling")
	}
	if !cfg.UseSignaling() && cfg.StreamURL == "" {
		return nil, errors.New("config: one of -stream or -signaling is required")
	}
	if cfg.ViewerID == "" {
		cfg.ViewerID = "viewer-" + shortID()
	}
	return cfg, nil
}

// configPath finds -config in args ahead of the real parse, so the file can
// seed flag defaults.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		name := strings.TrimLeft(a, "-")
		if name == a {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// listValue is a comma-separated flag.Value.
type listValue []string

func (l *listValue) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *listValue) Set(s string) error {
	*l = (*l)[:0]
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}
