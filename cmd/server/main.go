package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vault-rag/internal/chunker"
	"vault-rag/internal/config"
	"vault-rag/internal/db"
	"vault-rag/internal/index"
	"vault-rag/internal/llm"
	"vault-rag/internal/loader"
	"vault-rag/internal/rag"
	"vault-rag/internal/server"
	"vault-rag/internal/storage"
	"vault-rag/internal/vault"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	bundb := db.Connect(cfg.Database)
	defer bundb.Close()
	if err := db.Init(ctx, bundb); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	store := db.NewStore(bundb)

	embedder, err := llm.NewEmbedder(cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	ldr := loader.New(chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap))

	manager, err := index.NewManager(cfg.Vector, llm.ChromemEmbedding(embedder), ldr)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector database")
	}

	files, err := storage.NewDiskStore(cfg.Server.UploadsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Error preparing uploads directory")
	}

	client, err := llm.NewClient(cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat model")
	}

	vaultSvc := vault.NewService(store, files, manager, index.NewRegistry(), ldr)
	pipeline := rag.NewPipeline(client, cfg.RAG.TopK)

	// warm the vector indexes of users who already have processed files so
	// their first chat after a restart does not pay the rebuild cost
	if userIDs, err := store.UsersWithProcessedDocuments(ctx); err != nil {
		log.Error().Err(err).Msg("Error listing users for warm load")
	} else {
		vaultSvc.WarmLoad(ctx, userIDs)
	}

	srv := server.New(vaultSvc, pipeline, store)
	log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
