package engine

import (
	"sort"
	"strings"

	"github.com/rcliao/eliza/internal/model"
)

// SelectKeys returns the keys triggered by words, heaviest first. Ties keep
// the order in which trigger words appear in the input. Each key appears at
// most once and the default key is never selected.
func SelectKeys(words []string, rules *model.Rules) []*model.Key {
	var keys []*model.Key
	seen := map[*model.Key]bool{}
	for _, w := range words {
		if strings.EqualFold(w, model.DefaultKey) {
			continue
		}
		k := rules.Key(w)
		if k == nil || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].Weight > keys[j].Weight
	})
	return keys
}
