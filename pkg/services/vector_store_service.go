package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"storeops-api/pkg/models"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	policyCollectionName = "storeops_policies"
	embeddingVectorSize  = uint64(1536) // text-embedding-3-small
)

// VectorStoreService manages the policy-document index in Qdrant. It is the
// copilot's document retriever: unavailability is reported as an error so the
// pipeline can degrade to zero snippets.
type VectorStoreService struct {
	pointsClient       qdrant.PointsClient
	collectionsClient  qdrant.CollectionsClient
	azureOpenAIService *AzureOpenAIService
}

// NewVectorStoreService connects to Qdrant and ensures the policy collection
// exists. An API key switches the connection to TLS (Qdrant Cloud).
func NewVectorStoreService(azureOpenAIService *AzureOpenAIService, qdrantURL string, qdrantAPIKey string) (*VectorStoreService, error) {
	var dialOpts []grpc.DialOption

	if qdrantAPIKey != "" {
		creds := credentials.NewTLS(&tls.Config{})
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(creds))

		authInterceptor := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			ctx = metadata.AppendToOutgoingContext(ctx, "api-key", qdrantAPIKey)
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(authInterceptor))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(qdrantURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant gRPC client: %w", err)
	}

	pointsClient := qdrant.NewPointsClient(conn)
	collectionsClient := qdrant.NewCollectionsClient(conn)

	// Wait for the server to come up before checking the collection.
	maxRetries := 5
	retryInterval := 2 * time.Second
	var collectionExists bool
	var listErr error

	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		res, err := collectionsClient.List(ctx, &qdrant.ListCollectionsRequest{})
		cancel()
		listErr = err
		if err == nil {
			for _, collection := range res.GetCollections() {
				if collection.GetName() == policyCollectionName {
					collectionExists = true
					break
				}
			}
			break
		}
		log.Printf("Qdrant not ready yet (attempt %d/%d), retrying in %v: %v", i+1, maxRetries, retryInterval, err)
		time.Sleep(retryInterval)
	}

	if listErr != nil {
		return nil, fmt.Errorf("failed to list Qdrant collections: %w", listErr)
	}

	if !collectionExists {
		log.Printf("Collection '%s' does not exist, creating it", policyCollectionName)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err = collectionsClient.Create(ctx, &qdrant.CreateCollection{
			CollectionName: policyCollectionName,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     embeddingVectorSize,
						Distance: qdrant.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant collection: %w", err)
		}
	}

	return &VectorStoreService{
		pointsClient:       pointsClient,
		collectionsClient:  collectionsClient,
		azureOpenAIService: azureOpenAIService,
	}, nil
}

// SavePolicyDocument embeds a policy-document chunk and upserts it together
// with its metadata. The source file name must be present under "source".
func (s *VectorStoreService) SavePolicyDocument(ctx context.Context, text string, metadata map[string]interface{}) error {
	vector, err := s.azureOpenAIService.CreateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed document chunk: %w", err)
	}

	payload := make(map[string]*qdrant.Value)
	for key, value := range metadata {
		switch v := value.(type) {
		case string:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		case int:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v)}}
		case float64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v}}
		case bool:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: v}}
		}
	}
	payload["text"] = &qdrant.Value{
		Kind: &qdrant.Value_StringValue{StringValue: text},
	}

	pointID := uuid.New().String()
	points := []*qdrant.PointStruct{
		{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointID},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{
						Data: vector,
					},
				},
			},
			Payload: payload,
		},
	}

	waitUpsert := true
	_, err = s.pointsClient.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: policyCollectionName,
		Points:         points,
		Wait:           &waitUpsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert document chunk: %w", err)
	}

	return nil
}

// Search embeds the query and returns the topK most similar policy snippets.
func (s *VectorStoreService) Search(ctx context.Context, queryText string, topK int) ([]models.Snippet, error) {
	if topK < 1 {
		topK = 1
	}

	queryVector, err := s.azureOpenAIService.CreateEmbedding(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	withPayload := true
	searchResult, err := s.pointsClient.Search(ctx, &qdrant.SearchPoints{
		CollectionName: policyCollectionName,
		Vector:         queryVector,
		Limit:          uint64(topK),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: withPayload}},
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	points := searchResult.GetResult()
	snippets := make([]models.Snippet, 0, len(points))
	for _, point := range points {
		text := getStringPayload(point.Payload, "text")
		if text == "" {
			continue
		}
		snippets = append(snippets, models.Snippet{
			Text:   text,
			Source: getStringPayload(point.Payload, "source"),
			Score:  point.Score,
		})
	}
	return snippets, nil
}

// getStringPayload reads a string value out of a Qdrant payload.
func getStringPayload(payload map[string]*qdrant.Value, key string) string {
	if val, ok := payload[key]; ok && val != nil {
		return val.GetStringValue()
	}
	return ""
}
