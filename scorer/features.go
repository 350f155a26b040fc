package scorer

import "fmt"

// buildFeatures maps select-mode candidates (one byte per item, nonzero
// means selected) into a row-major n×dim matrix.
//
// Column 0 is the selected fraction over all items. Column b ≥ 1 is the
// selected fraction over the items j with 1 + j mod (dim-1) == b, so every
// item lands in exactly one bucket.
func buildFeatures(cands []byte, numItems, n, dim int) ([]float32, error) {
	if numItems < 0 || n < 0 {
		return nil, fmt.Errorf("%w: %d items, %d candidates", ErrShape, numItems, n)
	}
	if len(cands) != numItems*n {
		return nil, fmt.Errorf("%w: %d bytes for %d candidates of %d items", ErrShape, len(cands), n, numItems)
	}
	out := make([]float32, n*dim)
	if numItems == 0 {
		return out, nil
	}

	buckets := dim - 1
	bucketSize := make([]int, dim)
	for j := 0; j < numItems && buckets > 0; j++ {
		bucketSize[1+j%buckets]++
	}

	counts := make([]int, dim)
	for c := 0; c < n; c++ {
		clear(counts)
		for j, v := range cands[c*numItems : (c+1)*numItems] {
			if v == 0 {
				continue
			}
			counts[0]++
			if buckets > 0 {
				counts[1+j%buckets]++
			}
		}
		row := out[c*dim : (c+1)*dim]
		row[0] = float32(counts[0]) / float32(numItems)
		for b := 1; b < dim; b++ {
			if bucketSize[b] > 0 {
				row[b] = float32(counts[b]) / float32(bucketSize[b])
			}
		}
	}
	return out, nil
}
