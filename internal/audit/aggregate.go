package audit

const percentageMultiplierConstant = 100.0

// Aggregate groups results by category in first-seen order and computes the scores.
func Aggregate(results []Result) Summary {
	summary := Summary{}
	categoryIndexes := make(map[string]int)

	for _, result := range results {
		categoryIndex, seen := categoryIndexes[result.Category]
		if !seen {
			categoryIndex = len(summary.Categories)
			categoryIndexes[result.Category] = categoryIndex
			summary.Categories = append(summary.Categories, CategorySummary{Category: result.Category})
		}

		category := &summary.Categories[categoryIndex]
		category.Total++
		category.Results = append(category.Results, result)
		summary.Total++

		if result.Passed {
			category.Passed++
			summary.Passed++
			continue
		}
		summary.Failures = append(summary.Failures, result)
	}

	summary.Failed = summary.Total - summary.Passed
	summary.Score = Score(summary.Passed, summary.Total)
	return summary
}

// Score returns passed/total as a percentage, or zero when total is zero.
func Score(passed int, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(passed) / float64(total) * percentageMultiplierConstant
}
