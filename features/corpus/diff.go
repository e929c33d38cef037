package corpus

// Partition splits normalized documents into the work set (new, or stored
// hash differs) and the unchanged remainder. Only the work set is chunked,
// embedded and written; unchanged documents incur no downstream cost.
func Partition(docs []Document, stored map[string]string) (work, unchanged []Document) {
	for _, d := range docs {
		if h, ok := stored[d.ID]; ok && h == d.ContentHash {
			unchanged = append(unchanged, d)
			continue
		}
		work = append(work, d)
	}
	return work, unchanged
}
