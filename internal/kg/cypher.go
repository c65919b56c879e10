package kg

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// CypherStore is the bolt-protocol backend, for deployments whose building
// model lives in Memgraph/Neo4j instead of a triple store.
type CypherStore struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

func NewCypherStore(uri, username, password string, logger *zap.Logger) (*CypherStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	logger.Info("connected to graph store", zap.String("uri", uri))
	return &CypherStore{driver: driver, logger: logger.Named("cypher")}, nil
}

func (s *CypherStore) Select(ctx context.Context, query string) ([]BindingRecord, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, nil, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, &QueryError{Backend: "cypher", Err: err}
	}

	records := make([]BindingRecord, 0, len(result.Records))
	for _, row := range result.Records {
		rec := NewBindingRecord()
		for _, key := range row.Keys {
			value, ok := row.Get(key)
			if !ok || value == nil {
				continue
			}
			rec.Set(key, fmt.Sprint(value))
		}
		records = append(records, rec)
	}

	s.logger.Debug("select executed", zap.Int("rows", len(records)))
	return records, nil
}

const cypherListSensors = `MATCH (s:Sensor) RETURN s.name AS name ORDER BY name`

func (s *CypherStore) ListSensorNames(ctx context.Context) ([]string, error) {
	records, err := s.Select(ctx, cypherListSensors)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		if name, ok := rec.Get("name"); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *CypherStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
