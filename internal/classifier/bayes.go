package classifier

import "math"

// bayesModel is a multinomial naive Bayes text classifier with add-one
// smoothing. Labels are the raw company/position strings; features are
// normalized tokens. All fields are exported for JSON persistence.
type bayesModel struct {
	Docs        map[string]int            `json:"docs"`
	TokenCounts map[string]map[string]int `json:"token_counts"`
	TotalTokens map[string]int            `json:"total_tokens"`
	Vocab       map[string]bool           `json:"vocab"`
	TotalDocs   int                       `json:"total_docs"`
}

func newBayesModel() *bayesModel {
	return &bayesModel{
		Docs:        make(map[string]int),
		TokenCounts: make(map[string]map[string]int),
		TotalTokens: make(map[string]int),
		Vocab:       make(map[string]bool),
	}
}

func (m *bayesModel) add(label string, tokens []string) {
	if label == "" || len(tokens) == 0 {
		return
	}
	m.Docs[label]++
	m.TotalDocs++
	counts, ok := m.TokenCounts[label]
	if !ok {
		counts = make(map[string]int)
		m.TokenCounts[label] = counts
	}
	for _, tok := range tokens {
		counts[tok]++
		m.TotalTokens[label]++
		m.Vocab[tok] = true
	}
}

// predict returns the maximum-posterior label and a softmax-normalized
// confidence, or ("", 0) when the model is empty.
func (m *bayesModel) predict(tokens []string) (string, float64) {
	if m == nil || m.TotalDocs == 0 || len(tokens) == 0 {
		return "", 0
	}

	vocabSize := float64(len(m.Vocab))
	scores := make(map[string]float64, len(m.Docs))
	best := ""
	bestScore := math.Inf(-1)

	for label, docs := range m.Docs {
		score := math.Log(float64(docs) / float64(m.TotalDocs))
		counts := m.TokenCounts[label]
		denom := float64(m.TotalTokens[label]) + vocabSize
		for _, tok := range tokens {
			score += math.Log((float64(counts[tok]) + 1) / denom)
		}
		scores[label] = score
		if score > bestScore {
			bestScore = score
			best = label
		}
	}

	var total float64
	for _, score := range scores {
		total += math.Exp(score - bestScore)
	}
	return best, 1 / total
}
