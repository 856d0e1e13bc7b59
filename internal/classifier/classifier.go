// Package classifier is the statistical fallback for emails that pass the
// relevance gate but match no ATS rule and no generic pattern. It is pure
// best-effort: untrained or failing, it yields unresolved fields and never
// propagates an error into the parse pipeline.
package classifier

import (
	"context"
	"encoding/json"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"apptrack/server/internal/cache"
	"apptrack/server/internal/models"
	"apptrack/server/internal/textnorm"

	"go.uber.org/zap"
)

const modelCacheKey = "apptrack:classifier:model:v1"

// Example is one valid training row distilled from a LabeledEmail.
type Example struct {
	Subject  string
	Body     string
	Sender   string
	Company  string
	Position string
	FromATS  bool
}

// EvalReport is the self-evaluation produced by a training pass. ATS-sourced
// emails are structurally easier, so their accuracy is reported separately.
type EvalReport struct {
	Examples         int     `json:"examples"`
	TrainSize        int     `json:"train_size"`
	TestSize         int     `json:"test_size"`
	CompanyAccuracy  float64 `json:"company_accuracy"`
	PositionAccuracy float64 `json:"position_accuracy"`
	ATSAccuracy      float64 `json:"ats_accuracy"`
	NonATSAccuracy   float64 `json:"non_ats_accuracy"`
}

// Prediction carries the classifier's field guesses with confidences.
type Prediction struct {
	Company            models.Field
	Position           models.Field
	CompanyConfidence  float64
	PositionConfidence float64
}

type parserModels struct {
	Company  *bayesModel `json:"company"`
	Position *bayesModel `json:"position"`
}

func (p *parserModels) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

func (p *parserModels) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}

type Classifier struct {
	mu          sync.RWMutex
	current     *parserModels // nil until trained or loaded
	cache       cache.Cache
	logger      *zap.Logger
	minExamples int
	split       float64
}

func New(modelCache cache.Cache, logger *zap.Logger, minExamples int, split float64) *Classifier {
	if minExamples <= 0 {
		minExamples = 10
	}
	if split <= 0 || split >= 1 {
		split = 0.8
	}
	return &Classifier{
		cache:       modelCache,
		logger:      logger,
		minExamples: minExamples,
		split:       split,
	}
}

// Trained reports whether a model is currently published.
func (c *Classifier) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil
}

// Load restores a previously saved model. A missing model is not an error;
// the classifier simply starts untrained.
func (c *Classifier) Load(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	loaded := &parserModels{}
	err := c.cache.Get(ctx, modelCacheKey, loaded)
	if err == cache.ErrNotFound {
		c.logger.Info("no saved classifier model found, starting untrained")
		return nil
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.current = loaded
	c.mu.Unlock()
	c.logger.Info("classifier model loaded",
		zap.Int("company_labels", len(loaded.Company.Docs)),
		zap.Int("position_labels", len(loaded.Position.Docs)))
	return nil
}

// ValidExample is the training validity predicate: both fields present,
// non-sentinel, and above the length floors.
func ValidExample(company, position string) bool {
	company = strings.TrimSpace(company)
	position = strings.TrimSpace(position)
	if len(company) < 2 || len(position) < 3 {
		return false
	}
	return company != models.UnknownCompany && position != models.DefaultPosition
}

// Train rebuilds the model from the valid subset of examples. Below the
// minimum corpus size it is a no-op and returns a nil report; callers keep
// using rule-based fallback only. The new model replaces the published one
// atomically; in-flight Classify calls finish on whichever model they saw.
func (c *Classifier) Train(ctx context.Context, examples []Example) (*EvalReport, error) {
	valid := make([]Example, 0, len(examples))
	for _, ex := range examples {
		if ValidExample(ex.Company, ex.Position) {
			valid = append(valid, ex)
		}
	}

	if len(valid) < c.minExamples {
		c.logger.Info("not enough valid examples to train",
			zap.Int("valid", len(valid)),
			zap.Int("required", c.minExamples))
		return nil, nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rng.Shuffle(len(valid), func(i, j int) {
		valid[i], valid[j] = valid[j], valid[i]
	})

	trainSize := int(float64(len(valid)) * c.split)
	if trainSize == 0 {
		trainSize = len(valid)
	}
	trainSet, testSet := valid[:trainSize], valid[trainSize:]

	trained := &parserModels{
		Company:  newBayesModel(),
		Position: newBayesModel(),
	}
	for _, ex := range trainSet {
		trained.Company.add(ex.Company, companyFeatures(ex.Subject, ex.Body, ex.Sender, ex.FromATS))
		trained.Position.add(ex.Position, positionFeatures(ex.Subject, ex.Body, ex.FromATS))
	}

	report := evaluate(trained, testSet)
	report.Examples = len(valid)
	report.TrainSize = len(trainSet)
	report.TestSize = len(testSet)

	c.logger.Info("classifier trained",
		zap.Int("examples", report.Examples),
		zap.Int("test_size", report.TestSize),
		zap.Float64("company_accuracy", report.CompanyAccuracy),
		zap.Float64("position_accuracy", report.PositionAccuracy),
		zap.Float64("ats_accuracy", report.ATSAccuracy),
		zap.Float64("non_ats_accuracy", report.NonATSAccuracy))

	c.mu.Lock()
	c.current = trained
	c.mu.Unlock()

	if c.cache != nil {
		// The model must survive restarts indefinitely, not ride the
		// default cache TTL.
		if err := c.cache.Set(ctx, modelCacheKey, trained, cache.NoExpiry); err != nil {
			c.logger.Warn("failed to persist classifier model", zap.Error(err))
		}
	}
	return report, nil
}

// Classify predicts company and position for one email. Untrained, it
// returns unresolved fields.
func (c *Classifier) Classify(email models.RawEmail, fromATS bool) Prediction {
	c.mu.RLock()
	trained := c.current
	c.mu.RUnlock()

	if trained == nil {
		return Prediction{}
	}

	company, companyConf := trained.Company.predict(
		companyFeatures(email.Subject, email.Body, email.Sender, fromATS))
	position, positionConf := trained.Position.predict(
		positionFeatures(email.Subject, email.Body, fromATS))

	return Prediction{
		Company:            models.Resolved(company),
		Position:           models.Resolved(position),
		CompanyConfidence:  companyConf,
		PositionConfidence: positionConf,
	}
}

func evaluate(trained *parserModels, testSet []Example) *EvalReport {
	report := &EvalReport{}
	var companyHits, positionHits int
	var atsHits, atsTotal, nonATSHits, nonATSTotal int

	for _, ex := range testSet {
		company, _ := trained.Company.predict(companyFeatures(ex.Subject, ex.Body, ex.Sender, ex.FromATS))
		position, _ := trained.Position.predict(positionFeatures(ex.Subject, ex.Body, ex.FromATS))

		companyHit := company == ex.Company
		if companyHit {
			companyHits++
		}
		if position == ex.Position {
			positionHits++
		}
		if ex.FromATS {
			atsTotal++
			if companyHit {
				atsHits++
			}
		} else {
			nonATSTotal++
			if companyHit {
				nonATSHits++
			}
		}
	}

	if len(testSet) > 0 {
		report.CompanyAccuracy = float64(companyHits) / float64(len(testSet))
		report.PositionAccuracy = float64(positionHits) / float64(len(testSet))
	}
	if atsTotal > 0 {
		report.ATSAccuracy = float64(atsHits) / float64(atsTotal)
	}
	if nonATSTotal > 0 {
		report.NonATSAccuracy = float64(nonATSHits) / float64(nonATSTotal)
	}
	return report
}

var domainPattern = regexp.MustCompile(`@([A-Za-z0-9.-]+)`)

func senderDomain(sender string) string {
	if m := domainPattern.FindStringSubmatch(sender); len(m) > 1 {
		return strings.ToLower(strings.Trim(m[1], ">"))
	}
	return ""
}

func companyFeatures(subject, body, sender string, fromATS bool) []string {
	tokens := textnorm.Normalize(subject + " " + body)
	if domain := senderDomain(sender); domain != "" {
		tokens = append(tokens, "dom:"+domain)
	}
	return append(tokens, atsToken(fromATS))
}

func positionFeatures(subject, body string, fromATS bool) []string {
	tokens := textnorm.Normalize(subject + " " + textnorm.FirstSentence(body))
	return append(tokens, atsToken(fromATS))
}

func atsToken(fromATS bool) string {
	if fromATS {
		return "ats:true"
	}
	return "ats:false"
}
