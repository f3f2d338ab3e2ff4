package coding

// ApplyEligibility 对召回结果做多条件资格过滤
// 数值边界为闭区间；未提供的条件不参与过滤
func ApplyEligibility(items []RetrievedItem, in SuggestInput) []RetrievedItem {
	out := make([]RetrievedItem, 0, len(items))
	for _, it := range items {
		c := it.Item
		if in.Age != nil && !c.AgeRange.Contains(*in.Age) {
			continue
		}
		if in.Duration != nil && !c.TimeRange.Contains(*in.Duration) {
			continue
		}
		if !c.MatchesProvider(in.Provider) {
			continue
		}
		if !c.MatchesLocation(in.Location) {
			continue
		}
		if !c.GenderRestriction.Allows(in.Sex) {
			continue
		}
		out = append(out, it)
	}
	return out
}
