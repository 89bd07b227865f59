package domain

// Reason is one contribution to a score.
type Reason struct {
	Label string
	Delta float64
}

// Recommendation is the categorical label derived from a score.
type Recommendation string

const (
	RecommendPlay     Recommendation = "PLAY"
	RecommendConsider Recommendation = "CONSIDER"
	RecommendSkip     Recommendation = "SKIP"
)

// ScoredPair is a ranked Lô pair ("12-21").
type ScoredPair struct {
	Pair           string
	Score          float64
	Reasons        []Reason
	IsGan          bool
	GanDays        int
	Sources        int     // number of distinct signal groups that contributed
	Confidence     float64 // Sources / signal group count
	Probability    float64 // max external probability of either member
	Recommendation Recommendation
}

// ScoredNumber is a ranked Đề number ("07").
type ScoredNumber struct {
	Number  string
	Score   float64
	Reasons []Reason
	Bridges int // supporting non-killer bridges
}
