package token

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/arcus/internal/core"
)

var _ core.Estimator = (*TiktokenEstimator)(nil)

// TiktokenEstimator counts tokens with the cl100k_base encoding. Exact
// for models sharing that vocabulary, a close bound for the rest.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenEstimator() (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &TiktokenEstimator{enc: enc}, nil
}

func (e *TiktokenEstimator) Estimate(item core.CandidateItem) core.TokenEstimate {
	contentTokens := e.EstimateText(item.Content)

	metadataTokens := metadataOverheadTokens
	if len(item.Metadata) > 0 {
		metadataTokens += e.EstimateText(metadataText(item.Metadata))
	}

	return core.TokenEstimate{
		ContentTokens:  contentTokens,
		MetadataTokens: metadataTokens,
		TotalTokens:    contentTokens + metadataTokens,
		Confidence:     0.99,
	}
}

func (e *TiktokenEstimator) EstimateText(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.Encode(text, nil, nil))
}
