package extraction

// QualityProfile controls render resolution and compression aggressiveness.
// Resolved once per job and passed explicitly through the pipeline, never read
// from ambient state.
type QualityProfile struct {
	Tier           string
	DPI            float64
	EncodeQuality  int // initial JPEG quality percentage
	MaxDimensionPx int
}

const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// ResolveQualityProfile maps a tier name to its fixed (dpi, quality) pair.
// An unknown tier is never a hard failure: it resolves to medium and known
// reports false so the caller can log a warning instead of failing the job.
func ResolveQualityProfile(tier string, maxDimensionPx int) (profile QualityProfile, known bool) {
	if maxDimensionPx <= 0 {
		maxDimensionPx = 1536
	}

	switch tier {
	case TierHigh:
		return QualityProfile{Tier: TierHigh, DPI: 300, EncodeQuality: 95, MaxDimensionPx: maxDimensionPx}, true
	case TierMedium:
		return QualityProfile{Tier: TierMedium, DPI: 200, EncodeQuality: 85, MaxDimensionPx: maxDimensionPx}, true
	case TierLow:
		return QualityProfile{Tier: TierLow, DPI: 150, EncodeQuality: 75, MaxDimensionPx: maxDimensionPx}, true
	default:
		return QualityProfile{Tier: TierMedium, DPI: 200, EncodeQuality: 85, MaxDimensionPx: maxDimensionPx}, false
	}
}
