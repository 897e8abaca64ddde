// Package classifier detects which department type a complaint belongs to,
// either through a hosted language model or by local keyword scoring.
package classifier

import (
	"context"
	"math"
	"strings"

	"github.com/aawaaz/complaint-server/internal/models"
)

// Result is a classification outcome. Department is free text as returned
// by the backend and must be validated against the closed enum by callers.
type Result struct {
	Department string  `json:"department"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Classifier maps complaint text to a department type
type Classifier interface {
	Classify(ctx context.Context, text string) (*Result, error)
}

// Keywords is the department keyword map shared by the hosted prompt and
// the local scorer.
var Keywords = map[models.DepartmentType][]string{
	models.DepartmentFire: {
		"fire", "smoke", "burning", "blaze", "flames", "explosion", "gas leak", "short circuit fire", "firefighter",
	},
	models.DepartmentPolice: {
		"theft", "robbery", "crime", "assault", "harassment", "violence", "police", "stolen", "fight",
		"illegal", "drunk", "noise", "traffic violation", "accident",
	},
	models.DepartmentWater: {
		"water", "pipeline", "leak", "leakage", "sewage", "drainage", "drain", "tap", "supply",
		"contaminated", "flooding", "overflow", "borewell",
	},
	models.DepartmentRoad: {
		"road", "pothole", "potholes", "street", "pavement", "footpath", "bridge", "highway",
		"speed breaker", "crack", "construction", "divider",
	},
	models.DepartmentHealth: {
		"hospital", "health", "disease", "mosquito", "dengue", "malaria", "medical", "clinic",
		"epidemic", "sanitation", "hygiene", "dead animal",
	},
	models.DepartmentElectricity: {
		"electricity", "power", "outage", "transformer", "wire", "wires", "electric", "pole",
		"streetlight", "street light", "voltage", "power cut", "meter",
	},
	models.DepartmentMunicipal: {
		"garbage", "waste", "trash", "dustbin", "cleanliness", "park", "encroachment", "stray",
		"building", "municipal", "litter", "dump",
	},
}

// LocalScorer counts keyword occurrences per department
type LocalScorer struct{}

// Classify never fails. A zero score defaults to the municipal corporation.
func (LocalScorer) Classify(_ context.Context, text string) (*Result, error) {
	lower := strings.ToLower(text)

	best := models.DepartmentMunicipal
	bestScore := 0
	// iterate in the fixed priority order so ties resolve deterministically
	for _, dept := range models.DepartmentTypes {
		score := 0
		for _, kw := range Keywords[dept] {
			score += strings.Count(lower, kw)
		}
		if score > bestScore {
			best, bestScore = dept, score
		}
	}

	if bestScore == 0 {
		return &Result{
			Department: string(models.DepartmentMunicipal),
			Confidence: 0.6,
			Reasoning:  "no department keywords matched",
		}, nil
	}
	return &Result{
		Department: string(best),
		Confidence: math.Min(float64(bestScore)*0.2+0.5, 0.9),
		Reasoning:  "keyword match",
	}, nil
}
