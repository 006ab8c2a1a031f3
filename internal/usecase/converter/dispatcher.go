package converter

import (
	"doc-converter/internal/domain"
)

// Classify maps a listing extension to its format class.
func Classify(ext string) (domain.FormatClass, bool) {
	return domain.ClassOf(ext)
}

// Partition splits refs into disjoint per-class subsets, keeping listing order
// within each. Refs with an unknown extension come back in dropped.
func Partition(refs []domain.SourceFileRef) (map[domain.FormatClass][]domain.SourceFileRef, []domain.SourceFileRef) {
	parts := make(map[domain.FormatClass][]domain.SourceFileRef, len(domain.FormatClasses))
	var dropped []domain.SourceFileRef

	for _, ref := range refs {
		class, ok := Classify(ref.Ext)
		if !ok {
			dropped = append(dropped, ref)
			continue
		}
		parts[class] = append(parts[class], ref)
	}

	return parts, dropped
}
