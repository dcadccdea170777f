// ABOUTME: Entry point for the pve-gateway server
// ABOUTME: Bridges chat frontends to the local Proxmox VE node

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/pve-gateway/internal/auth"
	"github.com/2389/pve-gateway/internal/config"
	"github.com/2389/pve-gateway/internal/provider"
	"github.com/2389/pve-gateway/internal/pve"
	"github.com/2389/pve-gateway/internal/server"
	"github.com/2389/pve-gateway/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _ ____   _____        __ _  __ _| |_ _____      ____ _ _   _
| '_ \ \ / / _ \_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| |_) \ V /  __/_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
| .__/ \_/ \___|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
|_|                   |___/                              |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: PVE_GATEWAY_CONFIG env var > XDG_CONFIG_HOME/pve-gateway/gateway.yaml > ~/.config/pve-gateway/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PVE_GATEWAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "pve-gateway", "gateway.yaml")
}

// getDataPath returns the path to the pve-gateway data directory.
// Priority: XDG_DATA_HOME/pve-gateway > ~/.local/share/pve-gateway
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "pve-gateway")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pve-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                Start the gateway server")
		fmt.Println("  init                 Create a config file with a fresh JWT secret")
		fmt.Println("  token --name NAME    Mint a frontend access token")
		fmt.Println("  health               Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "token":
		err = runToken()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file, falling back to defaults when none
// exists. A missing config is normal on a stock PVE node.
func loadConfig(configPath string) (*config.Config, bool, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default(), false, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, fromFile, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	if fromFile {
		fmt.Printf("Config:  %s\n", configPath)
	} else {
		fmt.Printf("Config:  built-in defaults\n")
	}
	green.Print("    ▶ ")
	fmt.Printf("Listen:  %s", cfg.Server.Addr)
	if cfg.Server.TLS() {
		yellow.Print(" [tls]")
	}
	fmt.Println()
	if cfg.Database.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Ledger:  %s\n", cfg.Database.Path)
	}
	if cfg.Auth.Required {
		green.Print("    ▶ ")
		fmt.Printf("Auth:    required\n")
	}
	fmt.Println()

	logger.Info("starting pve-gateway",
		"addr", cfg.Server.Addr,
		"tls", cfg.Server.TLS(),
		"auth_required", cfg.Auth.Required,
	)

	cli := pve.NewCLI()
	budgets := pve.DefaultBudgets()
	if cfg.Gateway.ExecTimeout > 0 {
		budgets.Exec = cfg.Gateway.ExecTimeout
	}
	cache := pve.NewCache(cli, cfg.Gateway.SnapshotTTL, logger)
	gateway := pve.NewGateway(cli, cli, cache, budgets, logger)
	if cfg.Gateway.Node != "" {
		gateway.SetNode(cfg.Gateway.Node)
	}

	var ledger *store.Ledger
	if cfg.Database.Path != "" {
		ledger, err = store.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer ledger.Close()
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.Required {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	}

	srv := server.New(server.Options{
		Config:   cfg.Server,
		Gateway:  gateway,
		Ledger:   ledger,
		Verifier: verifier,
		Keys: provider.Keys{
			OpenAI: cfg.Providers.OpenAIKey,
			Gemini: cfg.Providers.GeminiKey,
			XAI:    cfg.Providers.XAIKey,
		},
		Logger: logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	scheme := "http"
	if cfg.Server.TLS() {
		scheme = "https"
	}
	addr := cfg.Server.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	url := fmt.Sprintf("%s://%s/health", scheme, addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runToken mints a JWT for a frontend using the configured secret:
// pve-gateway token --name "kitchen dashboard"
func runToken() error {
	// Supports both "--name value" and "--name=value" formats
	var name string
	ttl := auth.DefaultTTL
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return fmt.Errorf("--name requires a value")
			}
			name = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			name = strings.TrimPrefix(arg, "--name=")
		case arg == "--ttl":
			if i+1 >= len(args) {
				return fmt.Errorf("--ttl requires a value")
			}
			d, err := time.ParseDuration(args[i+1])
			if err != nil {
				return fmt.Errorf("parsing --ttl: %w", err)
			}
			ttl = d
			i++
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("--name flag is required")
	}

	configPath := getConfigPath()
	cfg, fromFile, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !fromFile || cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt_secret not configured in %s (run 'pve-gateway init' first)", configPath)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	token, err := verifier.Generate(name, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	expiresAt := time.Now().Add(ttl).UTC()

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Token for %q (expires %s)\n\n", name, expiresAt.Format("Jan 02, 2006"))
	fmt.Println(token)
	return nil
}

// runInit writes a config file with a freshly generated JWT secret.
func runInit() error {
	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "actions.db")

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	if _, err := os.Stat(configPath); err == nil {
		cyan.Printf("  Config already exists: %s\n", configPath)
		return nil
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	configContent := fmt.Sprintf(`# pve-gateway configuration
# Generated by pve-gateway init

server:
  addr: ":5555"
  cert_file: "/etc/pve/local/pve-ssl.pem"
  key_file: "/etc/pve/local/pve-ssl.key"

gateway:
  snapshot_ttl: "10s"
  exec_timeout: "300s"

# Server-side provider keys are optional; frontends may send api_key per request.
providers:
  openai_api_key: "${OPENAI_API_KEY}"
  gemini_api_key: "${GEMINI_API_KEY}"
  xai_api_key: "${XAI_API_KEY}"

database:
  path: "%s"

auth:
  required: false
  jwt_secret: "%s"

logging:
  level: "info"
  format: "text"
`, dbPath, jwtSecret)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green.Printf("  ✓ Created config: %s\n", configPath)
	fmt.Println()
	fmt.Println("To start the server:")
	fmt.Println("  pve-gateway serve")
	return nil
}
