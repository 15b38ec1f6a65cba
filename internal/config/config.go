package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config 聚合客户端与本地网关的全部配置项。
type Config struct {
	Server  ServerConfig
	API     APIConfig
	Relay   RelayConfig
	Session SessionConfig
	Feed    FeedConfig
	Debug   bool
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	api, err := loadAPIConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig(api.BaseURL)
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	feed, err := loadFeedConfig()
	if err != nil {
		return nil, err
	}

	debug, err := parseBoolEnv("NESTFEED_DEBUG", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		API:     api,
		Relay:   relay,
		Session: session,
		Feed:    feed,
		Debug:   debug,
	}, nil
}

// ServerConfig 描述本地网关的 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault("NESTFEED_ALLOWED_ORIGINS", "http://localhost,http://127.0.0.1"))

	if strings.Contains(port, ":") {
		// 允许直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// APIConfig 描述远端 REST API。
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

func loadAPIConfig() (APIConfig, error) {
	base := strings.TrimRight(getEnvOrDefault("NESTFEED_API_URL", "http://localhost:3000/api"), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return APIConfig{}, fmt.Errorf("invalid NESTFEED_API_URL value: %q", base)
	}

	timeout, err := parseDurationEnv("NESTFEED_HTTP_TIMEOUT", 15*time.Second)
	if err != nil {
		return APIConfig{}, err
	}

	return APIConfig{BaseURL: base, Timeout: timeout}, nil
}

// RelayConfig 描述实时消息中继的连接参数。
type RelayConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
}

func loadRelayConfig(apiBase string) (RelayConfig, error) {
	handshake, err := parseDurationEnv("NESTFEED_RELAY_HANDSHAKE_TIMEOUT", 10*time.Second)
	if err != nil {
		return RelayConfig{}, err
	}

	ping, err := parseDurationEnv("NESTFEED_RELAY_PING_INTERVAL", 30*time.Second)
	if err != nil {
		return RelayConfig{}, err
	}

	relayURL := strings.TrimSpace(os.Getenv("NESTFEED_RELAY_URL"))
	if relayURL == "" {
		relayURL, err = deriveRelayURL(apiBase)
		if err != nil {
			return RelayConfig{}, err
		}
	}

	return RelayConfig{
		URL:              relayURL,
		HandshakeTimeout: handshake,
		PingInterval:     ping,
	}, nil
}

// deriveRelayURL maps the REST origin onto the websocket endpoint served next to it.
func deriveRelayURL(apiBase string) (string, error) {
	parsed, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("derive relay url: %w", err)
	}

	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/ws"
	parsed.RawQuery = ""
	return parsed.String(), nil
}

// SessionBackend 选择会话持久化方式。
type SessionBackend string

const (
	SessionBackendMemory SessionBackend = "memory"
	SessionBackendFile   SessionBackend = "file"
	SessionBackendSQLite SessionBackend = "sqlite"
)

// SessionConfig 描述会话存储与保留窗口。
type SessionConfig struct {
	Backend   SessionBackend
	Path      string
	Retention time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	backend := SessionBackend(strings.ToLower(getEnvOrDefault("NESTFEED_SESSION_BACKEND", string(SessionBackendFile))))
	switch backend {
	case SessionBackendMemory, SessionBackendFile, SessionBackendSQLite:
	default:
		return SessionConfig{}, fmt.Errorf("invalid NESTFEED_SESSION_BACKEND value: %q", backend)
	}

	retention, err := parseDurationEnv("NESTFEED_SESSION_RETENTION", 7*24*time.Hour)
	if err != nil {
		return SessionConfig{}, err
	}
	if retention <= 0 {
		return SessionConfig{}, fmt.Errorf("NESTFEED_SESSION_RETENTION must be positive")
	}

	path := strings.TrimSpace(os.Getenv("NESTFEED_SESSION_PATH"))
	if path == "" && backend != SessionBackendMemory {
		path = defaultSessionPath(backend)
	}

	return SessionConfig{Backend: backend, Path: path, Retention: retention}, nil
}

func defaultSessionPath(backend SessionBackend) string {
	dir, err := os.UserHomeDir()
	if err != nil || dir == "" {
		dir = "."
	}

	name := "session.yaml"
	if backend == SessionBackendSQLite {
		name = "session.db"
	}
	return filepath.Join(dir, ".nestfeed", name)
}

// FeedConfig 描述信息流分页参数。
type FeedConfig struct {
	PageSize int
}

func loadFeedConfig() (FeedConfig, error) {
	size, err := parseOptionalIntEnv("NESTFEED_FEED_PAGE_SIZE")
	if err != nil {
		return FeedConfig{}, err
	}

	pageSize := 5
	if size != nil {
		if *size < 1 {
			return FeedConfig{}, fmt.Errorf("NESTFEED_FEED_PAGE_SIZE must be at least 1")
		}
		pageSize = *size
	}
	return FeedConfig{PageSize: pageSize}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: negative duration", key, raw)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
