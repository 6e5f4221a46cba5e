//go:build ignore

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	config "storeops-api/configs"
	"storeops-api/pkg/services"

	"github.com/joho/godotenv"
)

const (
	chunkSize    = 1000
	chunkOverlap = 150
)

var acceptedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".log":      true,
	".csv":      true,
	".json":     true,
}

// Indexes the policy/SOP documents into the Qdrant collection the copilot
// retrieves from. Safe to re-run; chunks are upserted.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.LoadConfig()

	docsDir := flag.String("docs-dir", cfg.PolicyDocsDir, "directory of policy documents to index")
	flag.Parse()

	openaiService := services.NewAzureOpenAIService(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIAPIKey,
		cfg.AzureOpenAIAPIVersion,
		cfg.AzureOpenAIChatDeploymentName,
		cfg.AzureOpenAIEmbeddingDeploymentName,
	)
	if !openaiService.Ready() {
		log.Fatal("Azure OpenAI is not configured; embeddings are required for ingest")
	}

	vectorStoreService, err := services.NewVectorStoreService(openaiService, cfg.QdrantURL, cfg.QdrantAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}

	ctx := context.Background()

	files := 0
	chunks := 0
	err = filepath.Walk(*docsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if !acceptedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Skipping %s: %v", path, err)
			return nil
		}

		source := filepath.Base(path)
		for i, chunk := range chunkText(string(content)) {
			metadata := map[string]interface{}{
				"source": source,
				"chunk":  i,
				"type":   "policy_document",
			}
			if err := vectorStoreService.SavePolicyDocument(ctx, chunk, metadata); err != nil {
				log.Printf("Failed to index chunk %d of %s: %v", i, source, err)
				continue
			}
			chunks++
		}
		files++
		log.Printf("Indexed %s", source)
		return nil
	})
	if err != nil {
		log.Fatalf("Ingest walk failed: %v", err)
	}

	log.Printf("Done: indexed %d chunks from %d files", chunks, files)
}

// chunkText splits text into overlapping windows, skipping whitespace-only
// chunks.
func chunkText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	step := chunkSize - chunkOverlap
	for start := 0; start < len(text); start += step {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(text) {
			break
		}
	}
	return out
}
