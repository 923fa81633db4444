package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const payloadTextField = "text"

// FilterableFields are the metadata fields indexed for payload filtering.
var FilterableFields = []string{"source", "subject", "from", "to"}

// QdrantStore implements VectorStore using Qdrant
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore creates a new Qdrant vector store client for one collection.
// addr should be in format "host:port" (e.g., "localhost:6334").
func NewQdrantStore(addr, apiKey, collection string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// If no port specified, assume default
		host = addr
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant addr: %w", err)
	}

	cfg := &qdrant.Config{
		Host: host,
		Port: port,
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client, collection: collection}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Collection returns the collection name this store operates on.
func (s *QdrantStore) Collection() string {
	return s.collection
}

// RecreateCollection drops and recreates the collection with cosine
// distance, then builds keyword payload indexes so equality filters on
// source, subject, from and to stay fast.
func (s *QdrantStore) RecreateCollection(ctx context.Context, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for _, field := range FilterableFields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create payload index on %q: %w", field, err)
		}
	}

	return nil
}

// Upsert inserts or updates embedded chunks in the collection.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := map[string]*qdrant.Value{
			payloadTextField: qdrant.NewValueString(p.Text),
		}
		for k, v := range p.Metadata {
			payload[k] = qdrant.NewValueString(v)
		}

		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointUUID(p.ID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// Search performs similarity search with an optional payload filter.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]SearchResult, error) {
	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		Filter:         translateFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		result := SearchResult{
			Score:    point.Score,
			Metadata: make(map[string]string, len(FilterableFields)),
		}

		if payload := point.Payload; payload != nil {
			if text, ok := payload[payloadTextField]; ok {
				result.Text = text.GetStringValue()
			}
			for _, field := range FilterableFields {
				if v, ok := payload[field]; ok {
					result.Metadata[field] = v.GetStringValue()
				} else {
					result.Metadata[field] = ""
				}
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// translateFilter converts a Filter expression into Qdrant's native
// representation. Conjunctions flatten into a single Must list, so
// nested $and expressions translate identically to a flat one. A nil
// or effectively-empty filter translates to nil (no filtering).
func translateFilter(f Filter) *qdrant.Filter {
	must := flattenFilter(f)
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func flattenFilter(f Filter) []*qdrant.Condition {
	switch expr := f.(type) {
	case nil:
		return nil
	case Equals:
		return []*qdrant.Condition{qdrant.NewMatch(expr.Field, expr.Value)}
	case And:
		var must []*qdrant.Condition
		for _, clause := range expr.Clauses {
			must = append(must, flattenFilter(clause)...)
		}
		return must
	default:
		return nil
	}
}

// pointUUID derives a stable UUIDv5 point ID from a chunk ID, so
// re-indexing the same corpus produces the same point IDs.
func pointUUID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(chunkID)).String()
}

// Ensure QdrantStore implements VectorStore
var _ VectorStore = (*QdrantStore)(nil)
