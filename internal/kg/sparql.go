package kg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SPARQLStore executes SELECT queries against a SPARQL 1.1 HTTP endpoint.
type SPARQLStore struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewSPARQLStore(endpoint string, timeout time.Duration, logger *zap.Logger) *SPARQLStore {
	return &SPARQLStore{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.Named("sparql"),
	}
}

type sparqlTerm struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sparqlResponse struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlTerm `json:"bindings"`
	} `json:"results"`
}

func (s *SPARQLStore) Select(ctx context.Context, query string) ([]BindingRecord, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &QueryError{Backend: "sparql", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &QueryError{Backend: "sparql", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &QueryError{Backend: "sparql", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &QueryError{
			Backend: "sparql",
			Err:     fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var parsed sparqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &QueryError{Backend: "sparql", Err: fmt.Errorf("malformed results document: %w", err)}
	}

	records := make([]BindingRecord, 0, len(parsed.Results.Bindings))
	for _, row := range parsed.Results.Bindings {
		rec := NewBindingRecord()
		for _, v := range parsed.Head.Vars {
			term, bound := row[v]
			if !bound {
				continue
			}
			rec.Set(v, standardizeTerm(term))
		}
		records = append(records, rec)
	}

	s.logger.Debug("select executed", zap.Int("rows", len(records)))
	return records, nil
}

// standardizeTerm flattens typed RDF terms to plain strings. IRIs are
// shortened to their local name so downstream stages see registry-style
// identifiers rather than full namespaces.
func standardizeTerm(t sparqlTerm) string {
	if t.Type == "uri" {
		return localName(t.Value)
	}
	return t.Value
}

func localName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

const sparqlListSensors = `SELECT ?s WHERE { ?s rdf:type/rdfs:subClassOf* brick:Sensor } ORDER BY ?s`

func (s *SPARQLStore) ListSensorNames(ctx context.Context) ([]string, error) {
	records, err := s.Select(ctx, InjectPrefixes(sparqlListSensors))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		if name, ok := rec.Get("s"); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *SPARQLStore) Close(ctx context.Context) error {
	s.client.CloseIdleConnections()
	return nil
}
