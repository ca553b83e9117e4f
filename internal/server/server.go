package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tapestry-analytics/tapestry/internal/pipeline"
	"github.com/tapestry-analytics/tapestry/internal/queue"
	mid "github.com/tapestry-analytics/tapestry/internal/server/middleware"
	"github.com/tapestry-analytics/tapestry/internal/storage"
	"github.com/tapestry-analytics/tapestry/internal/util"
	"github.com/tapestry-analytics/tapestry/pkg/ai"
	oai "github.com/tapestry-analytics/tapestry/pkg/ai/ollama"
	gai "github.com/tapestry-analytics/tapestry/pkg/ai/openai"
	"github.com/tapestry-analytics/tapestry/pkg/cache"
	"github.com/tapestry-analytics/tapestry/pkg/extract"
	"github.com/tapestry-analytics/tapestry/pkg/logger"
	"github.com/tapestry-analytics/tapestry/pkg/scheduler"
	pgstore "github.com/tapestry-analytics/tapestry/pkg/store/pgx"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	notifier, err := queue.NewNotifier(ch)
	if err != nil {
		logger.Fatal("Failed to set up job event exchange", "err", err)
	}

	s3 := storage.NewS3Client(ctx)
	texts := storage.NewTextLoader(s3)

	aiClient := newAIClient()

	chunkCache := cache.New(util.GetEnvInt64("EXTRACT_CACHE_BYTES", 64<<20))
	extractor := extract.NewExtractor(extract.NewExtractorParams{
		Model:       aiClient,
		Cache:       chunkCache,
		ParallelMax: util.GetEnvInt("AI_PARALLEL_REQ", extract.DefaultParallelMax),
	})

	pipe := pipeline.NewPipeline(pipeline.NewPipelineParams{
		Store:            pgstore.NewSystemsDBStorage(conn),
		Texts:            texts,
		Extractor:        extractor,
		ExpectedKeywords: splitKeywords(util.GetEnv("QUALITY_KEYWORDS")),
	})

	sched := scheduler.New(scheduler.Config{
		MaxConcurrentJobs:    util.GetEnvInt("SCHEDULER_MAX_CONCURRENT", 2),
		MemoryThresholdBytes: util.GetEnvInt64("SCHEDULER_MEMORY_BYTES", 512<<20),
	}, scheduler.WithEventHook(notifier.Notify))
	sched.RegisterHandler(scheduler.JobExtraction, pipe.ProcessExtractionJob)
	sched.RegisterHandler(scheduler.JobAnalysis, pipe.ProcessAnalysisJob)

	e.Use(mid.AppContextMiddleware(&mid.App{
		Scheduler: sched,
		Pipeline:  pipe,
	}))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to drain scheduler", "err", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

func newAIClient() ai.TextModel {
	adapter := util.GetEnv("AI_ADAPTER")
	switch adapter {
	case "ollama":
		client, err := oai.NewTextOllamaClient(oai.NewTextOllamaClientParams{
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: util.GetEnvInt64("AI_PARALLEL_REQ", 4),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewTextOpenAIClient(gai.NewTextOpenAIClientParams{
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),

			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: util.GetEnv("AI_CHAT_KEY"),
		})
	}
}

func splitKeywords(value string) []string {
	if value == "" {
		return nil
	}
	keywords := make([]string, 0)
	for _, kw := range strings.Split(value, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
