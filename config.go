package main

import (
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"

	"mcastchat/internal/mcast"
)

const (
	uiTUI  = "tui"
	uiLine = "line"
)

// Config holds everything read from flags and the environment.
type Config struct {
	Mcast mcast.Config

	UI          string
	StatusAddr  string
	NotifySound string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// loadConfig builds a Config from args, using getenv for defaults. Flags
// win over environment variables.
func loadConfig(args []string, getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}
	def := mcast.DefaultConfig()

	fs := flag.NewFlagSet("mcastchat", flag.ContinueOnError)
	group := fs.String("group", env.Str("MCASTCHAT_GROUP", def.Group.String()), "IPv4 multicast group to join")
	port := fs.Int("port", env.Int("MCASTCHAT_PORT", def.Port), "UDP port to bind and send to")
	reuse := fs.Bool("reuse-addr", env.Bool("MCASTCHAT_REUSE_ADDR", def.ReuseAddr), "allow other processes to bind the same port")
	loopback := fs.Bool("loopback", env.Bool("MCASTCHAT_LOOPBACK", def.Loopback), "receive our own messages")
	ttl := fs.Int("ttl", env.Int("MCASTCHAT_TTL", def.TTL), "multicast TTL (1 = local segment)")
	ifaceName := fs.String("iface", env.Str("MCASTCHAT_IFACE", ""), "network interface to join on (default: kernel choice)")
	ui := fs.String("ui", env.Str("MCASTCHAT_UI", uiTUI), "user interface: tui or line")
	statusAddr := fs.String("status-addr", env.Str("MCASTCHAT_STATUS_ADDR", ""), "serve /healthz, /transcript and /metrics on this address")
	notify := fs.String("notify-sound", env.Str("MCASTCHAT_NOTIFY_SOUND", ""), "mp3 or wav file played on new messages (tui only)")
	logLevel := fs.String("log-level", env.Str("MCASTCHAT_LOG_LEVEL", "info"), "log level")
	logFormat := fs.String("log-format", env.Str("MCASTCHAT_LOG_FORMAT", "console"), "log format: console or json")
	logFile := fs.String("log-file", env.Str("MCASTCHAT_LOG_FILE", ""), "write logs to this file")

	if env.err != nil {
		return nil, env.err
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	ip := net.ParseIP(*group)
	if ip == nil {
		return nil, fmt.Errorf("invalid group address %q", *group)
	}
	if *ttl < 1 || *ttl > 255 {
		return nil, fmt.Errorf("ttl must be between 1 and 255, got %d", *ttl)
	}

	cfg := &Config{
		Mcast: mcast.Config{
			Group:     ip,
			Port:      *port,
			ReuseAddr: *reuse,
			Loopback:  *loopback,
			TTL:       *ttl,
		},
		UI:          strings.ToLower(*ui),
		StatusAddr:  *statusAddr,
		NotifySound: *notify,
		LogLevel:    *logLevel,
		LogFormat:   strings.ToLower(*logFormat),
		LogFile:     *logFile,
	}

	if *ifaceName != "" {
		iface, err := net.InterfaceByName(*ifaceName)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", *ifaceName, err)
		}
		cfg.Mcast.Interface = iface
	}

	if err := cfg.Mcast.Validate(); err != nil {
		return nil, err
	}
	switch cfg.UI {
	case uiTUI, uiLine:
	default:
		return nil, fmt.Errorf("unknown ui %q (want tui or line)", cfg.UI)
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", cfg.LogFormat)
	}
	return cfg, nil
}

// envReader reads typed defaults and keeps the first parse error.
type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) Str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) Int(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *envReader) Bool(key string, def bool) bool {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s: %w", key, err)
	}
}
