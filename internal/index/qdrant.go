package index

import (
	"context"
	"fmt"

	"github.com/futig/rag-chat/internal/entity"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	payloadChunkID = "chunk_id"
	payloadText    = "text"
	payloadSource  = "source"
)

var (
	_ Searcher = &Qdrant{}
	_ Writer   = &Qdrant{}
)

// Qdrant talks to a Qdrant server over gRPC.
type Qdrant struct {
	conn        *grpc.ClientConn
	points      qdrantclient.PointsClient
	collections qdrantclient.CollectionsClient
	collection  string
	// set after the first Upsert made sure the collection exists
	ensured bool
}

func NewQdrant(host string, port int, collection string) (*Qdrant, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}

	return &Qdrant{
		conn:        conn,
		points:      qdrantclient.NewPointsClient(conn),
		collections: qdrantclient.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Ping lists collections to check that the server answers.
func (q *Qdrant) Ping(ctx context.Context) error {
	_, err := q.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list qdrant collections: %w", err)
	}
	return nil
}

func (q *Qdrant) CollectionExists(ctx context.Context) (bool, error) {
	resp, err := q.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list qdrant collections: %w", err)
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == q.collection {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCollection creates the collection with cosine distance if it is missing.
func (q *Qdrant) EnsureCollection(ctx context.Context, dimension int) error {
	exists, err := q.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = q.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection %s: %w", q.collection, err)
	}
	return nil
}

func (q *Qdrant) Search(ctx context.Context, vector []float32, k int) ([]entity.ScoredChunk, error) {
	if k <= 0 {
		return []entity.ScoredChunk{}, nil
	}

	resp, err := q.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Include{
				Include: &qdrantclient.PayloadIncludeSelector{
					Fields: []string{payloadChunkID, payloadText, payloadSource},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search qdrant: %w", err)
	}

	result := make([]entity.ScoredChunk, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		payload := point.GetPayload()
		result = append(result, entity.ScoredChunk{
			Chunk: entity.Chunk{
				ID:     payload[payloadChunkID].GetStringValue(),
				Text:   payload[payloadText].GetStringValue(),
				Source: payload[payloadSource].GetStringValue(),
			},
			Score: float64(point.GetScore()),
		})
	}
	return result, nil
}

// Upsert creates the collection on first use, sized to the first chunk.
// It is meant for a single indexing goroutine.
func (q *Qdrant) Upsert(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if !q.ensured {
		if err := q.EnsureCollection(ctx, len(chunks[0].Embedding)); err != nil {
			return err
		}
		q.ensured = true
	}

	points := make([]*qdrantclient.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: c.ID},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: c.Embedding},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				payloadChunkID: stringValue(c.ID),
				payloadText:    stringValue(c.Text),
				payloadSource:  stringValue(c.Source),
			},
		})
	}

	wait := true
	_, err := q.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Commit is a no-op: upserts are acknowledged synchronously.
func (q *Qdrant) Commit(ctx context.Context) error {
	return nil
}

func (q *Qdrant) Close() error {
	return q.conn.Close()
}

func stringValue(s string) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: s}}
}
