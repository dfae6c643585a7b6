package cache

import (
	"strings"

	"curator/internal/core"
)

// ImageKey identifies a resolved image. The strategy is part of the key so that
// a name resolved as a person never shadows the same name resolved as a work.
func ImageKey(name string, strategy core.Strategy) string {
	return "image:" + string(strategy) + ":" + strings.TrimSpace(name)
}

// RelatedKey identifies a collaborator answer for one query and category label.
func RelatedKey(label, query string) string {
	return "related:" + label + ":" + strings.TrimSpace(query)
}
