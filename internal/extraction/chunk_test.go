package extraction

import "testing"

func makeSlides(n int) []SlideRecord {
	slides := make([]SlideRecord, n)
	for i := range slides {
		slides[i] = SlideRecord{SlideNumber: i + 1}
	}
	return slides
}

func TestChunkSlides(t *testing.T) {
	testCases := []struct {
		name        string
		slides      int
		size        int
		overlap     int
		wantStarts  []int
		wantLens    []int
		wantOverlap []int
	}{
		{
			name:   "seven slides size three overlap one",
			slides: 7, size: 3, overlap: 1,
			wantStarts:  []int{0, 2, 4},
			wantLens:    []int{3, 3, 3},
			wantOverlap: []int{0, 1, 1},
		},
		{
			name:   "short final chunk",
			slides: 8, size: 3, overlap: 1,
			wantStarts:  []int{0, 2, 4, 6},
			wantLens:    []int{3, 3, 3, 2},
			wantOverlap: []int{0, 1, 1, 1},
		},
		{
			name:   "no overlap",
			slides: 6, size: 2, overlap: 0,
			wantStarts:  []int{0, 2, 4},
			wantLens:    []int{2, 2, 2},
			wantOverlap: []int{0, 0, 0},
		},
		{
			name:   "single chunk when size covers all",
			slides: 4, size: 10, overlap: 2,
			wantStarts:  []int{0},
			wantLens:    []int{4},
			wantOverlap: []int{0},
		},
		{
			name:   "overlap clamped below size",
			slides: 5, size: 2, overlap: 5,
			wantStarts:  []int{0, 1, 2, 3},
			wantLens:    []int{2, 2, 2, 2},
			wantOverlap: []int{0, 1, 1, 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := ChunkSlides(makeSlides(tc.slides), tc.size, tc.overlap)

			if len(chunks) != len(tc.wantStarts) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tc.wantStarts))
			}
			for i, chunk := range chunks {
				if chunk.StartIndex != tc.wantStarts[i] {
					t.Errorf("chunk %d StartIndex = %d, want %d", i, chunk.StartIndex, tc.wantStarts[i])
				}
				if len(chunk.Slides) != tc.wantLens[i] {
					t.Errorf("chunk %d length = %d, want %d", i, len(chunk.Slides), tc.wantLens[i])
				}
				if chunk.OverlapCount != tc.wantOverlap[i] {
					t.Errorf("chunk %d OverlapCount = %d, want %d", i, chunk.OverlapCount, tc.wantOverlap[i])
				}
			}
		})
	}
}

func TestChunkSlidesCoverage(t *testing.T) {
	chunks := ChunkSlides(makeSlides(11), 4, 2)

	// Every slide appears at least once, and order is preserved inside chunks
	seen := make(map[int]int)
	for _, chunk := range chunks {
		for i, slide := range chunk.Slides {
			seen[slide.SlideNumber]++
			if slide.SlideNumber != chunk.StartIndex+i+1 {
				t.Errorf("slide %d out of position in chunk starting at %d", slide.SlideNumber, chunk.StartIndex)
			}
		}
	}
	for n := 1; n <= 11; n++ {
		if seen[n] == 0 {
			t.Errorf("slide %d missing from every chunk", n)
		}
		if seen[n] > 2 {
			t.Errorf("slide %d appears in %d chunks, want at most 2", n, seen[n])
		}
	}
}

func TestChunkSlidesEmpty(t *testing.T) {
	if chunks := ChunkSlides(nil, 5, 1); chunks != nil {
		t.Errorf("got %d chunks for empty input, want nil", len(chunks))
	}
}
