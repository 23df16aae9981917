// Package main provides the Agents Playbook chat service entry point. It
// wires the message store, workflow library, context builder, and chat
// pipeline, and serves the HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agentsplaybook/internal/api"
	"agentsplaybook/internal/library"
	"agentsplaybook/internal/logger"
	"agentsplaybook/internal/services"
	"agentsplaybook/internal/store"
	"agentsplaybook/pkg/playbooktypes"
)

var (
	logLevel        string
	logFile         string
	addr            string
	libraryDir      string
	storeDir        string
	autoResetTokens int
	provider        string
	model           string
	timeoutSeconds  int
	version         = "0.1.0" // This could be set at build time
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "playbook",
	Short: "Agents Playbook - workflow-guided AI chat service",
	Long: `Agents Playbook serves structured AI-agent workflows over a chat pipeline.
It assembles workflow context into model prompts, tracks per-session token
usage, and transparently rolls saturated sessions over to fresh ones.`,
	RunE: runServe, // Default behavior is to serve
}

// serveCmd represents the serve command (explicit version of default behavior)
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat service",
	Long:  `Start the HTTP chat service backed by the workflow library and session store.`,
	RunE:  runServe,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version of Agents Playbook.`,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Agents Playbook v%s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// A local .env supplies provider keys and service settings in development.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", ":8484", "HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&libraryDir, "library", "", "Directory of workflow library YAML files")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", "", "Directory for session snapshots (in-memory store when empty)")
	rootCmd.PersistentFlags().IntVar(&autoResetTokens, "auto-reset-tokens", 0, "Cumulative token threshold that triggers a session rollover")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "openai", "Default LLM provider (openai|anthropic|gemini)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "gpt-4o", "Default model name")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 120, "Model call timeout in seconds (0 disables)")

	for _, flag := range []string{"log-level", "log-file", "addr", "library", "store-dir", "auto-reset-tokens", "provider", "model", "timeout"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
			os.Exit(1)
		}
	}
	viper.SetEnvPrefix("PLAYBOOK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	// Configure logger before any command execution
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if err := logger.Configure(logLevel, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	logger.Info("Starting Agents Playbook", "version", version)

	sessionStore, err := buildStore()
	if err != nil {
		return err
	}

	lib, err := buildLibrary()
	if err != nil {
		return err
	}

	builder := services.NewContextBuilder()
	builder.RegisterSystemProvider(services.NewWorkflowMetadataProvider(lib))
	builder.RegisterSystemProvider(services.NewStageOutlineProvider(lib))
	builder.RegisterUserProvider(services.NewCurrentMiniPromptProvider(lib))
	builder.RegisterUserProvider(services.NewMiniPromptCatalogProvider(lib))
	builder.RegisterUserProvider(services.NewConversationModeProvider())

	manager := services.NewAutoResetManager(sessionStore, sessionStore, viper.GetInt("auto-reset-tokens"))
	logger.Info("Auto-reset threshold configured", "tokens", manager.Threshold())

	chat := services.NewChatService(services.ChatServiceConfig{
		Store:           sessionStore,
		Registry:        sessionStore,
		Builder:         builder,
		Factory:         services.NewClientFactoryService(),
		Manager:         manager,
		DefaultProvider: viper.GetString("provider"),
		DefaultModel:    viper.GetString("model"),
		Timeout:         time.Duration(viper.GetInt("timeout")) * time.Second,
	})

	server := &http.Server{
		Addr:    viper.GetString("addr"),
		Handler: api.NewRouter(chat, sessionStore),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// storeBackend is the store interface union the service needs. Both store
// implementations satisfy it.
type storeBackend interface {
	playbooktypes.MessageStore
	playbooktypes.SessionRegistry
}

func buildStore() (storeBackend, error) {
	dir := viper.GetString("store-dir")
	if dir == "" {
		logger.Info("Using in-memory session store")
		return store.NewMemoryStore(), nil
	}
	logger.Info("Using file-backed session store", "path", dir)
	return store.NewFileStore(dir)
}

func buildLibrary() (*library.Library, error) {
	dir := viper.GetString("library")
	if dir == "" {
		logger.Warn("No workflow library configured; context providers will have nothing to resolve")
		return library.New(), nil
	}
	return library.Load(dir)
}
