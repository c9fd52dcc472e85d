package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/polarisnav/polaris/internal/ai"
	"github.com/polarisnav/polaris/internal/ai/gemini"
	"github.com/polarisnav/polaris/internal/catalog"
	"github.com/polarisnav/polaris/internal/logger"
	"github.com/polarisnav/polaris/internal/recommend"
	"github.com/polarisnav/polaris/internal/resolve"
	"github.com/polarisnav/polaris/internal/secrets"
	"github.com/polarisnav/polaris/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the polaris HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides the config)")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

// serve is the main command for the service.
func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting polaris", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	cat := loadCatalog(config.Catalog.File, logger)
	index := catalog.BuildIndex(cat)

	logger.Info("role catalog ready",
		zap.Int("roles", cat.Len()),
		zap.Int("normalized_names", cat.NormalizedLen()),
		zap.Int("overlaps", index.Len()),
	)

	engine := recommend.New(cat, index, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	advisor, err := prepareAdvisor(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("running without AI advisor", zap.Error(err))
	}

	var estimator ai.Estimator
	var generator ai.ContentGenerator
	if advisor != nil {
		estimator = advisor
		generator = advisor
	}

	srv := server.New(server.Config{
		Port:         config.Server.Port,
		CORSOrigins:  config.Server.CORSOrigins,
		RateLimitRPS: config.Server.RateLimitRPS,
	}, server.Deps{
		Catalog:  cat,
		Index:    index,
		Engine:   engine,
		Resolver: resolve.NewChain(cat, estimator, logger),
		Advisor:  generator,
		Logger:   logger,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}

	logger.Info("server stopped")
}

// loadCatalog degrades to an empty catalog when the data file is missing or
// malformed; the service still answers health checks and AI-only queries.
func loadCatalog(path string, logger *zap.Logger) *catalog.Catalog {
	cat, err := catalog.Load(path)
	if err != nil {
		if errors.Is(err, catalog.ErrDataSource) {
			logger.Warn("role catalog unavailable, starting with an empty catalog",
				zap.String("path", path),
				zap.Error(err),
			)
			return catalog.Empty()
		}
		logger.Fatal("loading role catalog", zap.String("path", path), zap.Error(err))
	}
	return cat
}

func prepareAdvisor(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Advisor, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("ai is disabled in the configuration")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewAdvisor(generator, cfg.Gemini.MaxLogLength, logger), nil
}
