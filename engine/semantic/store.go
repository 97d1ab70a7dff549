// Package semantic mirrors an index build into a Qdrant collection so live
// consumers can query the corpus without fetching shard files. The sink is
// optional; the shard directory remains the durable contract.
package semantic

import (
	"context"
	"fmt"

	"github.com/docketwatch/docketwatch/engine/domain"
	"github.com/docketwatch/docketwatch/pkg/fn"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// upsertBatch bounds points per Upsert call.
const upsertBatch = 256

// VectorStore owns all Qdrant operations for one collection.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New connects to Qdrant at the given gRPC address.
func New(addr, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// Reset drops the collection if present and recreates it for the given
// dimension. An index build fully supersedes the previous one.
func (v *VectorStore) Reset(ctx context.Context, dim int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			if _, err := v.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: v.collection}); err != nil {
				return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
			}
			break
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// UpsertItems stores embedded items in batches. Point IDs are deterministic
// UUIDs derived from the record's stable identifier, so re-running a build
// overwrites rather than duplicates.
func (v *VectorStore) UpsertItems(ctx context.Context, items []domain.EmbeddedItem) error {
	for _, batch := range fn.Chunk(items, upsertBatch) {
		points := fn.Map(batch, pointFromItem)
		wait := true
		_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: v.collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("semantic: upsert %d points: %w", len(batch), err)
		}
	}
	return nil
}

func pointFromItem(it domain.EmbeddedItem) *pb.PointStruct {
	pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(it.ID)).String()
	payload := map[string]*pb.Value{
		"id":                  strValue(it.ID),
		"court_path":          strValue(it.CourtPath),
		"case_name":           strValue(it.CaseName),
		"docket":              strValue(it.Docket),
		"date_filed":          strValue(it.DateFiled),
		"neutral_citation":    strValue(it.NeutralCitation),
		"precedential_status": strValue(it.PrecedentialStatus),
		"download_url":        strValue(it.DownloadURL),
		"source_url":          strValue(it.SourceURL),
		"summary":             strValue(it.Summary),
	}
	return &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: pointID},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: it.Embedding},
			},
		},
		Payload: payload,
	}
}

func strValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}
