package store

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wikivec/wikivec/internal/models"
	"github.com/wikivec/wikivec/internal/types"
)

// QdrantStore keeps articles in a Qdrant collection with two named vectors
// per point ("title" and "content") and the id/title/url payload.
type QdrantStore struct {
	config      Config
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
}

func NewQdrant(config Config) (*QdrantStore, error) {
	conn, err := grpc.NewClient(config.QdrantAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	qs := &QdrantStore{
		config:      config,
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}

	if err := qs.ensureCollection(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}

	return qs, nil
}

func (qs *QdrantStore) ensureCollection(ctx context.Context) error {
	resp, err := qs.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant list collections: %w", err)
	}
	for _, c := range resp.Collections {
		if c.Name == qs.config.Collection {
			return nil
		}
	}

	dim := uint64(qs.config.VectorDim)
	_, err = qs.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: qs.config.Collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_ParamsMap{
				ParamsMap: &pb.VectorParamsMap{
					Map: map[string]*pb.VectorParams{
						types.FieldTitle:   {Size: dim, Distance: pb.Distance_Cosine},
						types.FieldContent: {Size: dim, Distance: pb.Distance_Cosine},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

func (qs *QdrantStore) Upsert(ctx context.Context, articles []models.Article) error {
	points := make([]*pb.PointStruct, len(articles))
	for i, a := range articles {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(a.VectorID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vectors{
				Vectors: &pb.NamedVectors{Vectors: map[string]*pb.Vector{
					types.FieldTitle:   {Data: a.TitleVector},
					types.FieldContent: {Data: a.ContentVector},
				}},
			}},
			Payload: map[string]*pb.Value{
				"id":    {Kind: &pb.Value_IntegerValue{IntegerValue: int64(a.ID)}},
				"title": {Kind: &pb.Value_StringValue{StringValue: a.Title}},
				"url":   {Kind: &pb.Value_StringValue{StringValue: a.URL}},
			},
		}
	}

	_, err := qs.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: qs.config.Collection,
		Points:         points,
	})
	return err
}

func (qs *QdrantStore) Query(ctx context.Context, embedding []float32, field string, limit int) ([]models.ScoredArticle, error) {
	if _, err := vectorColumn(field); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = qs.config.SearchLimit
	}

	resp, err := qs.points.Search(ctx, &pb.SearchPoints{
		CollectionName: qs.config.Collection,
		Vector:         embedding,
		VectorName:     &field,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]models.ScoredArticle, len(resp.Result))
	for i, pt := range resp.Result {
		article := models.Article{
			VectorID: int(pt.Id.GetNum()),
		}
		for k, v := range pt.Payload {
			switch k {
			case "id":
				article.ID = int(v.GetIntegerValue())
			case "title":
				article.Title = v.GetStringValue()
			case "url":
				article.URL = v.GetStringValue()
			}
		}
		results[i] = models.ScoredArticle{
			Article: article,
			Score:   pt.Score,
		}
	}
	return results, nil
}

func (qs *QdrantStore) Close() {
	if qs.conn != nil {
		qs.conn.Close()
	}
}

var _ types.VectorStore = (*QdrantStore)(nil)
