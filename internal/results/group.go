package results

import "cseek/internal/domain"

// GroupKey derives the display group for a candidate: its file path. The UI
// derives the visible portion of a row by stripping exactly this prefix, so
// the key must agree with the candidate's own file field.
func GroupKey(c domain.Candidate) string {
	return c.File
}

// Group is a run of consecutive candidates sharing one group key
type Group struct {
	Key        string
	Candidates []domain.Candidate
}

// GroupInOrder segments candidates into display groups without reordering
// them. Candidates keep subprocess emission order; a new group starts
// whenever the key changes.
func GroupInOrder(candidates []domain.Candidate) []Group {
	var groups []Group
	for _, c := range candidates {
		key := GroupKey(c)
		if n := len(groups); n > 0 && groups[n-1].Key == key {
			groups[n-1].Candidates = append(groups[n-1].Candidates, c)
			continue
		}
		groups = append(groups, Group{Key: key, Candidates: []domain.Candidate{c}})
	}
	return groups
}
