// Package search indexes assessment results into Elasticsearch for
// benchmark reporting across businesses.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"bvester-assessment/internal/assessment"
	apperrors "bvester-assessment/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Document is the flattened form of a result stored in the index.
type Document struct {
	AssessmentID    string                      `json:"assessmentId"`
	UserID          string                      `json:"userId,omitempty"`
	CatalogVersion  string                      `json:"catalogVersion"`
	OverallScore    int                         `json:"overallScore"`
	WeightedScore   int                         `json:"weightedScore"`
	RiskLevel       string                      `json:"riskLevel"`
	CategoryScores  map[assessment.Category]int `json:"categoryScores"`
	CompoundRiskIDs []string                    `json:"compoundRiskIds"`
	UrgentIssues    int                         `json:"urgentIssues"`
	FundingTier     string                      `json:"fundingTier"`
	Percentile      int                         `json:"percentile"`
	SixMonthFailure float64                     `json:"sixMonthFailure"`
	CreatedAt       time.Time                   `json:"createdAt"`
}

func NewDocument(assessmentID, userID string, r *assessment.AssessmentResult) Document {
	ids := make([]string, 0, len(r.CompoundRisks))
	for _, risk := range r.CompoundRisks {
		ids = append(ids, risk.ID)
	}
	return Document{
		AssessmentID:    assessmentID,
		UserID:          userID,
		CatalogVersion:  r.CatalogVersion,
		OverallScore:    r.OverallScore,
		WeightedScore:   r.WeightedScore,
		RiskLevel:       string(r.RiskLevel),
		CategoryScores:  r.CategoryScores,
		CompoundRiskIDs: ids,
		UrgentIssues:    r.UrgentIssueCount(),
		FundingTier:     string(r.FundingReadiness.Tier),
		Percentile:      r.Benchmark.Percentile,
		SixMonthFailure: r.Predictive.SixMonthFailure,
		CreatedAt:       r.CreatedAt,
	}
}

type Indexer struct {
	es    *elasticsearch.Client
	index string
}

func NewIndexer(es *elasticsearch.Client, index string) *Indexer {
	return &Indexer{es: es, index: index}
}

func (i *Indexer) Index() string {
	return i.index
}

// IndexResult writes the result under the assessment id, replacing any
// earlier version.
func (i *Indexer) IndexResult(ctx context.Context, assessmentID, userID string, r *assessment.AssessmentResult) error {
	body, err := json.Marshal(NewDocument(assessmentID, userID, r))
	if err != nil {
		return apperrors.NewSearchIndexFailedError(i.index, err)
	}
	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: assessmentID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(i.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchIndexFailedError(i.index, responseError(res))
	}
	return nil
}

// RiskLevelCounts returns how many indexed results fall in each risk level.
func (i *Indexer) RiskLevelCounts(ctx context.Context) (map[string]int, error) {
	query := map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"by_risk": map[string]interface{}{
				"terms": map[string]interface{}{"field": "riskLevel.keyword", "size": 10},
			},
		},
	}
	body, _ := json.Marshal(query)
	size := 0
	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return nil, apperrors.NewSearchIndexFailedError(i.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperrors.NewSearchIndexFailedError(i.index, responseError(res))
	}

	var parsed struct {
		Aggregations struct {
			ByRisk struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int    `json:"doc_count"`
				} `json:"buckets"`
			} `json:"by_risk"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchIndexFailedError(i.index, err)
	}
	counts := make(map[string]int, len(parsed.Aggregations.ByRisk.Buckets))
	for _, b := range parsed.Aggregations.ByRisk.Buckets {
		counts[b.Key] = b.DocCount
	}
	return counts, nil
}

func responseError(res *esapi.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%s: %s", res.Status(), bytes.TrimSpace(msg))
}
