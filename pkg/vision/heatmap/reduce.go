package heatmap

// Candidate 簇内最强的匹配点
type Candidate struct {
	Point    Point   `json:"point"`
	Strength float64 `json:"strength"`
}

// Reduce 每个簇取热图得分最高的点，得分相同时保留先出现的点
func Reduce(h *Heatmap, clusters []Cluster) []Candidate {
	candidates := make([]Candidate, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster) == 0 {
			continue
		}
		best := Candidate{Point: cluster[0], Strength: h.At(cluster[0])}
		for _, p := range cluster[1:] {
			if v := h.At(p); v > best.Strength {
				best = Candidate{Point: p, Strength: v}
			}
		}
		candidates = append(candidates, best)
	}
	return candidates
}
