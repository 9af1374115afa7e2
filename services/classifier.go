package services

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

// Prediction is the classification verdict for a single message. Classify
// never fails: degraded verdicts carry an explanatory analysis string instead.
type Prediction struct {
	IsSpam                bool
	SpamProbability       float64
	LegitimateProbability float64
	Confidence            float64
	Analysis              string
}

// Vectorizer turns message text into a sparse feature vector.
type Vectorizer interface {
	Transform(text string) (map[int]float64, error)
}

// Model scores a feature vector. The returned probabilities align with
// Classes; class 0 is legitimate, class 1 is spam.
type Model interface {
	Classes() []int
	Predict(features map[int]float64) (label int, probs []float64, err error)
}

// Classifier wraps the pre-trained model behind the classification contract.
// It is loaded once at startup and is read-only afterwards, so concurrent
// scoring is safe.
type Classifier struct {
	vectorizer Vectorizer
	model      Model
}

func NewClassifier(vectorizer Vectorizer, model Model) *Classifier {
	return &Classifier{vectorizer: vectorizer, model: model}
}

// LoadClassifier reads the serialized model and vectorizer from a JSON file.
func LoadClassifier(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var file modelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}

	if len(file.Vocabulary) != len(file.IDF) {
		return nil, fmt.Errorf("model file mismatch: %d vocabulary terms, %d idf weights", len(file.Vocabulary), len(file.IDF))
	}
	if len(file.Classes) != len(file.ClassLogPriors) || len(file.Classes) != len(file.FeatureLogProbs) {
		return nil, fmt.Errorf("model file mismatch: %d classes, %d priors, %d likelihood rows",
			len(file.Classes), len(file.ClassLogPriors), len(file.FeatureLogProbs))
	}

	return NewClassifier(
		&tfidfVectorizer{vocabulary: file.Vocabulary, idf: file.IDF},
		&naiveBayesModel{
			classes:         file.Classes,
			classLogPriors:  file.ClassLogPriors,
			featureLogProbs: file.FeatureLogProbs,
		},
	), nil
}

// Classify scores a message. Edge cases:
//   - empty or whitespace-only text is legitimate with full confidence
//   - text with no extracted features is legitimate with confidence 0.8
//   - a single-class probability is complemented by class identity, any other
//     unexpected shape falls back to 0.5/0.5
//   - a scoring failure yields a degraded not-spam verdict with confidence 0.5
func (c *Classifier) Classify(text string) Prediction {
	if strings.TrimSpace(text) == "" {
		return Prediction{
			IsSpam:                false,
			SpamProbability:       0.0,
			LegitimateProbability: 1.0,
			Confidence:            1.0,
			Analysis:              "✅ LEGIT (empty email)",
		}
	}

	features, err := c.vectorizer.Transform(text)
	if err != nil {
		return predictionError()
	}

	if len(features) == 0 {
		return Prediction{
			IsSpam:                false,
			SpamProbability:       0.0,
			LegitimateProbability: 1.0,
			Confidence:            0.8,
			Analysis:              "✅ LEGIT (no features)",
		}
	}

	label, probs, err := c.model.Predict(features)
	if err != nil {
		return predictionError()
	}

	var spamProb, legitProb float64
	classes := c.model.Classes()
	switch {
	case len(probs) == 2:
		legitProb = probs[0]
		spamProb = probs[1]
	case len(probs) == 1 && len(classes) >= 1:
		if classes[0] == 1 {
			spamProb = probs[0]
			legitProb = 1.0 - spamProb
		} else {
			legitProb = probs[0]
			spamProb = 1.0 - legitProb
		}
	default:
		spamProb = 0.5
		legitProb = 0.5
	}

	isSpam := label != 0
	confidence := math.Max(spamProb, legitProb)

	verdict := "✅ LEGIT"
	if isSpam {
		verdict = "🚨 SPAM"
	}

	return Prediction{
		IsSpam:                isSpam,
		SpamProbability:       spamProb,
		LegitimateProbability: legitProb,
		Confidence:            confidence,
		Analysis:              fmt.Sprintf("%s (Confidence: %.1f%%)", verdict, confidence*100),
	}
}

func predictionError() Prediction {
	return Prediction{
		IsSpam:                false,
		SpamProbability:       0.0,
		LegitimateProbability: 1.0,
		Confidence:            0.5,
		Analysis:              "✅ LEGIT (prediction error)",
	}
}

// modelFile is the on-disk JSON layout of the exported model.
type modelFile struct {
	Classes         []int          `json:"classes"`
	ClassLogPriors  []float64      `json:"class_log_priors"`
	FeatureLogProbs [][]float64    `json:"feature_log_probs"`
	Vocabulary      map[string]int `json:"vocabulary"`
	IDF             []float64      `json:"idf"`
}

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// tfidfVectorizer reproduces the trained TF-IDF transform: lowercase word
// tokens, term frequency times idf weight, L2-normalized.
type tfidfVectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

func (v *tfidfVectorizer) Transform(text string) (map[int]float64, error) {
	counts := make(map[int]float64)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if idx, ok := v.vocabulary[token]; ok {
			counts[idx]++
		}
	}

	var norm float64
	for idx, tf := range counts {
		if idx < 0 || idx >= len(v.idf) {
			return nil, fmt.Errorf("vocabulary index %d out of idf range", idx)
		}
		weighted := tf * v.idf[idx]
		counts[idx] = weighted
		norm += weighted * weighted
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range counts {
			counts[idx] /= norm
		}
	}

	return counts, nil
}

// naiveBayesModel is a multinomial naive Bayes scorer over TF-IDF features.
type naiveBayesModel struct {
	classes         []int
	classLogPriors  []float64
	featureLogProbs [][]float64
}

func (m *naiveBayesModel) Classes() []int {
	return m.classes
}

func (m *naiveBayesModel) Predict(features map[int]float64) (int, []float64, error) {
	if len(m.classes) == 0 {
		return 0, nil, fmt.Errorf("model has no classes")
	}

	// Joint log likelihood per class, then normalized with log-sum-exp.
	scores := make([]float64, len(m.classes))
	for c := range m.classes {
		score := m.classLogPriors[c]
		row := m.featureLogProbs[c]
		for idx, value := range features {
			if idx < 0 || idx >= len(row) {
				return 0, nil, fmt.Errorf("feature index %d out of model range", idx)
			}
			score += value * row[idx]
		}
		scores[c] = score
	}

	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	var sum float64
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}

	best := 0
	for i := range probs {
		probs[i] /= sum
		if probs[i] > probs[best] {
			best = i
		}
	}

	return m.classes[best], probs, nil
}
