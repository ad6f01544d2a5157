package lps

// Normalize applies global mean/variance normalization:
//
//	out[i][j] = (frames[i][j] - mean[j]) / variance[j]
//
// Note the division is by the variance itself, not by the standard
// deviation; the mask models are trained on features normalized this way.
func Normalize(frames Matrix, stats *Stats) (Matrix, error) {
	if len(frames) == 0 {
		return Matrix{}, nil
	}
	if err := CheckShape("normalizer input", frames, Shape{Rows: len(frames), Cols: stats.Bins()}); err != nil {
		return nil, err
	}

	out := NewMatrix(len(frames), stats.Bins())
	for i, row := range frames {
		outRow := out[i]
		for j, v := range row {
			outRow[j] = (v - stats.mean[j]) / stats.variance[j]
		}
	}
	return out, nil
}
