// Package labels turns class indices into human-readable names.
package labels

import (
	"fmt"
	"sync"
)

// Unknown is returned as the true label when no ground truth is given.
const Unknown = "Unknown"

var (
	mu       sync.RWMutex
	registry = map[string][]string{}
)

// Register associates class names with a model identifier. Passing nil
// removes the entry.
func Register(model string, names []string) {
	mu.Lock()
	defer mu.Unlock()
	if names == nil {
		delete(registry, model)
		return
	}
	registry[model] = append([]string(nil), names...)
}

// Names returns the class names registered for model.
func Names(model string) ([]string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	names, ok := registry[model]
	return names, ok
}

// Mapping resolves the predicted class and the optional ground truth label
// to names. names takes precedence over names registered for model; classes
// outside both fall back to "class <n>".
func Mapping(model string, predicted int, label *int, names []string) (predictedLabel, trueLabel string) {
	if names == nil {
		names, _ = Names(model)
	}
	predictedLabel = lookup(names, predicted)
	trueLabel = Unknown
	if label != nil {
		trueLabel = lookup(names, *label)
	}
	return predictedLabel, trueLabel
}

func lookup(names []string, class int) string {
	if class >= 0 && class < len(names) {
		return names[class]
	}
	return fmt.Sprintf("class %d", class)
}
