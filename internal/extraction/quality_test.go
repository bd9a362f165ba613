package extraction

import "testing"

func TestResolveQualityProfile(t *testing.T) {
	testCases := []struct {
		name        string
		tier        string
		wantTier    string
		wantDPI     float64
		wantQuality int
		wantKnown   bool
	}{
		{name: "high tier", tier: "high", wantTier: TierHigh, wantDPI: 300, wantQuality: 95, wantKnown: true},
		{name: "medium tier", tier: "medium", wantTier: TierMedium, wantDPI: 200, wantQuality: 85, wantKnown: true},
		{name: "low tier", tier: "low", wantTier: TierLow, wantDPI: 150, wantQuality: 75, wantKnown: true},
		{name: "unknown tier defaults to medium", tier: "ultra", wantTier: TierMedium, wantDPI: 200, wantQuality: 85, wantKnown: false},
		{name: "empty tier defaults to medium", tier: "", wantTier: TierMedium, wantDPI: 200, wantQuality: 85, wantKnown: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			profile, known := ResolveQualityProfile(tc.tier, 1536)

			if profile.Tier != tc.wantTier {
				t.Errorf("Tier = %q, want %q", profile.Tier, tc.wantTier)
			}
			if profile.DPI != tc.wantDPI {
				t.Errorf("DPI = %v, want %v", profile.DPI, tc.wantDPI)
			}
			if profile.EncodeQuality != tc.wantQuality {
				t.Errorf("EncodeQuality = %d, want %d", profile.EncodeQuality, tc.wantQuality)
			}
			if known != tc.wantKnown {
				t.Errorf("known = %v, want %v", known, tc.wantKnown)
			}
		})
	}
}

func TestResolveQualityProfileMaxDimension(t *testing.T) {
	profile, _ := ResolveQualityProfile("high", 2048)
	if profile.MaxDimensionPx != 2048 {
		t.Errorf("MaxDimensionPx = %d, want 2048", profile.MaxDimensionPx)
	}

	profile, _ = ResolveQualityProfile("high", 0)
	if profile.MaxDimensionPx != 1536 {
		t.Errorf("MaxDimensionPx with zero input = %d, want default 1536", profile.MaxDimensionPx)
	}
}
