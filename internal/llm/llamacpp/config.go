package llamacpp

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Config for the llama.cpp server client.
type Config struct {
	BaseURL     string        // default http://127.0.0.1:8081
	Temperature float32       // default applied when a request leaves it unset
	Timeout     time.Duration // http client timeout
}

// Client calls a llama.cpp HTTP server's /completion endpoint. The underlying
// inference process handles one request at a time, so every call holds mu for
// its full duration.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
	mu   sync.Mutex
}

// NewClient builds a Client with config defaults applied.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:8081"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}
