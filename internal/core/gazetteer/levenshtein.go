package gazetteer

// boundedDistance returns the Levenshtein distance between a and b, or
// limit+1 as soon as the distance is known to exceed limit.
func boundedDistance(a, b []rune, limit int) int {
	if limit < 0 {
		return 0
	}
	la, lb := len(a), len(b)
	if diff := la - lb; diff > limit || -diff > limit {
		return limit + 1
	}
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if cur[j] < rowMin {
				rowMin = cur[j]
			}
		}
		// Every later row is at least this row's minimum.
		if rowMin > limit {
			return limit + 1
		}
		prev, cur = cur, prev
	}

	if prev[lb] > limit {
		return limit + 1
	}
	return prev[lb]
}
