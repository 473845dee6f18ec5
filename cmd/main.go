package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/buildwellai/news-scraper/internal/api"
	"github.com/buildwellai/news-scraper/internal/config"
	"github.com/buildwellai/news-scraper/internal/extract"
	"github.com/buildwellai/news-scraper/internal/feed"
	"github.com/buildwellai/news-scraper/internal/fetcher"
	"github.com/buildwellai/news-scraper/internal/ingest"
	"github.com/buildwellai/news-scraper/internal/source"
	"github.com/buildwellai/news-scraper/internal/storage"
	"github.com/buildwellai/news-scraper/internal/summary"
)

func main() {
	db, err := sqlx.Connect("postgres", config.Get().DatabaseDSN)
	if err != nil {
		log.Printf("[ERROR] failed to connect to db: %v", err)
		return
	}
	defer db.Close()

	sources, err := source.Load(config.Get().SourcesFile)
	if err != nil {
		log.Printf("[ERROR] failed to load source directory: %v", err)
		return
	}
	log.Printf("[INFO] loaded %d sources (%d with feeds)", len(sources), len(source.Eligible(sources)))

	var (
		articleStorage = storage.NewArticleStorage(db)
		sessionStorage = storage.NewSessionStorage(db)
		logStorage     = storage.NewLogStorage(db)
		httpFetcher    = fetcher.New(config.Get().UserAgent)
		feedParser     = feed.NewParser(config.Get().MaxItemsPerFeed)
		extractor      = extract.New(httpFetcher)
	)

	var summarizer ingest.Summarizer
	switch config.Get().AIType {
	case "ollama":
		if config.Get().AIBaseURL == "" {
			log.Printf("[ERROR] ai_base_url is required when ai_type is \"ollama\"")
			return
		}
		summarizer = summary.NewOllamaSummarizer(
			config.Get().AIBaseURL,
			config.Get().AIModel,
			config.Get().AITimeout,
		)
		log.Printf("[INFO] using Ollama summarizer (model: %s)", config.Get().AIModel)
	default:
		if config.Get().AIKey == "" {
			log.Printf("[ERROR] ai_key is required when ai_type is \"openai\"")
			return
		}
		summarizer = summary.NewOpenAISummarizer(
			config.Get().AIBaseURL,
			config.Get().AIKey,
			config.Get().AIModel,
			config.Get().AITimeout,
		)
		log.Printf("[INFO] using OpenAI-compatible summarizer (model: %s)", config.Get().AIModel)
	}

	ingestor := ingest.New(
		articleStorage,
		sessionStorage,
		logStorage,
		httpFetcher,
		feedParser,
		extractor,
		summarizer,
		sources,
		ingest.Options{
			SourceDelay:       config.Get().SourceDelay,
			ArticleDelay:      config.Get().ArticleDelay,
			ArticlesPerSource: config.Get().ArticlesPerSource,
		},
	)

	server := api.NewServer(ingestor, sessionStorage, logStorage, articleStorage)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func(ctx context.Context) {
		if err := ingestor.Start(ctx, config.Get().FetchInterval); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("[ERROR] failed to run ingestor: %v", err)
				return
			}

			log.Printf("[INFO] ingestor stopped")
		}
	}(ctx)

	httpServer := &http.Server{
		Addr:    config.Get().HTTPAddr,
		Handler: server.Handler(),
	}

	go func(ctx context.Context) {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}(ctx)

	log.Printf("[INFO] http server listening on %s", config.Get().HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("[ERROR] failed to run http server: %v", err)
	}
}
