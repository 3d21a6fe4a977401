package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/petervdpas/goopchat/internal/util"
)

type Config struct {
	Identity Identity `json:"identity"`
	Server   Server   `json:"server"`
	Chat     Chat     `json:"chat"`
	Call     Call     `json:"call"`
	Storage  Storage  `json:"storage"`
	Metrics  Metrics  `json:"metrics"`
}

type Identity struct {
	// Session token issued by the server at login. Prefer TokenFile or the
	// GOOPCHAT_TOKEN environment variable over storing it here.
	Token     string `json:"token,omitempty"`
	TokenFile string `json:"token_file"`
}

type Server struct {
	APIURL          string `json:"api_url"`
	SocketURL       string `json:"socket_url"`
	RequestTimeout  int    `json:"request_timeout_seconds"`
	ReconnectMinSec int    `json:"reconnect_min_seconds"`
	ReconnectMaxSec int    `json:"reconnect_max_seconds"`
}

type Chat struct {
	PageSize int `json:"page_size"`

	// Typing entries expire after this many seconds without a refresh.
	// 0 keeps them until stop_typing arrives.
	TypingTTLSec int `json:"typing_ttl_seconds"`
}

type Call struct {
	ICEServers             []string `json:"ice_servers"`
	GatherTimeoutSec       int      `json:"gather_timeout_seconds"`
	DisconnectedTimeoutSec int      `json:"disconnected_timeout_seconds"`
	FailedTimeoutSec       int      `json:"failed_timeout_seconds"`
	KeepAliveSec           int      `json:"keepalive_seconds"`
}

type Storage struct {
	// SQLite cache relative to the client directory. Empty disables it.
	DBPath string `json:"db_path"`
}

type Metrics struct {
	HTTPAddr string `json:"http_addr"`
}

func Default() Config {
	return Config{
		Identity: Identity{
			TokenFile: "data/token",
		},
		Server: Server{
			APIURL:          "http://localhost:5000/api",
			SocketURL:       "ws://localhost:5000/ws",
			RequestTimeout:  10,
			ReconnectMinSec: 1,
			ReconnectMaxSec: 30,
		},
		Chat: Chat{
			PageSize:     50,
			TypingTTLSec: 10,
		},
		Call: Call{
			ICEServers:             []string{"stun:stun.l.google.com:19302"},
			GatherTimeoutSec:       5,
			DisconnectedTimeoutSec: 30,
			FailedTimeoutSec:       120,
			KeepAliveSec:           2,
		},
		Storage: Storage{
			DBPath: "data/goopchat.db",
		},
		Metrics: Metrics{
			HTTPAddr: "",
		},
	}
}

func (c *Config) Validate() error {
	// Server
	if err := validateURL(c.Server.APIURL, "http", "https"); err != nil {
		return fmt.Errorf("server.api_url: %w", err)
	}
	if err := validateURL(c.Server.SocketURL, "ws", "wss"); err != nil {
		return fmt.Errorf("server.socket_url: %w", err)
	}
	if c.Server.RequestTimeout < 1 || c.Server.RequestTimeout > 300 {
		return errors.New("server.request_timeout_seconds must be 1..300")
	}
	if c.Server.ReconnectMinSec <= 0 {
		return errors.New("server.reconnect_min_seconds must be > 0")
	}
	if c.Server.ReconnectMaxSec < c.Server.ReconnectMinSec {
		return errors.New("server.reconnect_max_seconds must be >= server.reconnect_min_seconds")
	}

	// Chat
	if c.Chat.PageSize < 1 || c.Chat.PageSize > 500 {
		return errors.New("chat.page_size must be 1..500")
	}
	if c.Chat.TypingTTLSec < 0 {
		return errors.New("chat.typing_ttl_seconds must be >= 0")
	}

	// Call
	for _, s := range c.Call.ICEServers {
		if !strings.HasPrefix(s, "stun:") && !strings.HasPrefix(s, "turn:") && !strings.HasPrefix(s, "turns:") {
			return fmt.Errorf("call.ice_servers: %q must be a stun: or turn: url", s)
		}
	}
	if c.Call.GatherTimeoutSec < 0 || c.Call.DisconnectedTimeoutSec < 0 || c.Call.FailedTimeoutSec < 0 || c.Call.KeepAliveSec < 0 {
		return errors.New("call timeouts must be >= 0")
	}

	// Metrics
	if a := strings.TrimSpace(c.Metrics.HTTPAddr); a != "" {
		if _, port, ok := strings.Cut(a, ":"); !ok || port == "" {
			return errors.New("metrics.http_addr must be host:port")
		}
	}

	return nil
}

func validateURL(raw string, schemes ...string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %v", err)
	}
	ok := false
	for _, s := range schemes {
		if u.Scheme == s {
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
	}
	if u.Hostname() == "" {
		return errors.New("missing host")
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return errors.New("invalid port")
		}
	}
	return nil
}

func (c Chat) TypingTTL() time.Duration {
	return time.Duration(c.TypingTTLSec) * time.Second
}

func (s Server) Timeout() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadPartial reads a config file without validation, for the watcher
// which applies only the fields it can hot-reload.
func LoadPartial(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	b = stripBOM(b)

	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}
