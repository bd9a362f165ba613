package extraction

// ChunkSlides partitions an ordered slide sequence into overlapping windows
// for downstream contextual analysis. Each chunk after the first starts
// `overlap` slides before the end of the previous one, so a slide inside the
// overlap region appears in exactly the two adjacent chunks. Every slide
// appears in at least one chunk and order is preserved inside each chunk.
func ChunkSlides(slides []SlideRecord, size, overlap int) []Chunk {
	if len(slides) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + size
		if end > len(slides) {
			end = len(slides)
		}

		overlapCount := 0
		if len(chunks) > 0 {
			prev := chunks[len(chunks)-1]
			prevEnd := prev.StartIndex + len(prev.Slides)
			overlapCount = prevEnd - start
		}

		chunks = append(chunks, Chunk{
			Slides:       slides[start:end],
			StartIndex:   start,
			OverlapCount: overlapCount,
		})

		if end >= len(slides) {
			return chunks
		}
		start += size - overlap
	}
}
