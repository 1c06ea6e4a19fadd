// api/audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const indexName = "sentra-audit"

type Repository interface {
	Index(ctx context.Context, entry Entry) error
	CountActions(ctx context.Context, subjectID string, actions []string, from time.Time) (int64, error)
	DistinctIPs(ctx context.Context, subjectID, action string, from time.Time) ([]string, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient}, nil
}

// Index appends an audit entry to Elasticsearch.
func (r *ElasticsearchRepository) Index(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: entry.ID,
		Body:       strings.NewReader(string(data)),
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	return nil
}

// CountActions counts the subject's entries for the given action kinds
// since `from`. Backs the high-volume anomaly rule.
func (r *ElasticsearchRepository) CountActions(ctx context.Context, subjectID string, actions []string, from time.Time) (int64, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{
							"subject_id": subjectID,
						},
					},
					map[string]interface{}{
						"terms": map[string]interface{}{
							"action": actions,
						},
					},
					map[string]interface{}{
						"range": map[string]interface{}{
							"timestamp": map[string]interface{}{
								"gte": from.Format(time.RFC3339),
							},
						},
					},
				},
			},
		},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return 0, err
	}

	res, err := r.esClient.Count(
		r.esClient.Count.WithContext(ctx),
		r.esClient.Count.WithIndex(indexName),
		r.esClient.Count.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("error counting documents: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return 0, err
	}

	count, ok := rmap["count"].(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected count response: %v", rmap)
	}
	return int64(count), nil
}

// DistinctIPs returns the distinct source addresses of the subject's
// successful entries for one action kind since `from`. Backs the
// geographic anomaly rule with the known-login-IP baseline.
func (r *ElasticsearchRepository) DistinctIPs(ctx context.Context, subjectID, action string, from time.Time) ([]string, error) {
	query := map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{
							"subject_id": subjectID,
						},
					},
					map[string]interface{}{
						"match": map[string]interface{}{
							"action": action,
						},
					},
					map[string]interface{}{
						"match": map[string]interface{}{
							"success": true,
						},
					},
					map[string]interface{}{
						"range": map[string]interface{}{
							"timestamp": map[string]interface{}{
								"gte": from.Format(time.RFC3339),
							},
						},
					},
				},
			},
		},
		"aggs": map[string]interface{}{
			"ips": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": "ip.keyword",
					"size":  1000,
				},
			},
		},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(indexName),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching documents: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return nil, err
	}

	aggs, ok := rmap["aggregations"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	ipsAgg, ok := aggs["ips"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	bucketList, ok := ipsAgg["buckets"].([]interface{})
	if !ok {
		return nil, nil
	}

	ips := make([]string, 0, len(bucketList))
	for _, b := range bucketList {
		bucket, ok := b.(map[string]interface{})
		if !ok {
			continue
		}
		if key, ok := bucket["key"].(string); ok {
			ips = append(ips, key)
		}
	}
	return ips, nil
}
