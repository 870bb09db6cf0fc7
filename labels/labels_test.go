package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapping(t *testing.T) {
	Register("animals", []string{"cat", "dog", "parrot"})
	t.Cleanup(func() { Register("animals", nil) })

	two := 2
	tests := []struct {
		name      string
		model     string
		predicted int
		label     *int
		names     []string
		wantPred  string
		wantTrue  string
	}{
		{"registered names, unknown truth", "animals", 1, nil, nil, "dog", Unknown},
		{"registered names, known truth", "animals", 0, &two, nil, "cat", "parrot"},
		{"explicit names win", "animals", 1, &two, []string{"a", "b", "c"}, "b", "c"},
		{"unregistered model", "resnet50", 7, nil, nil, "class 7", Unknown},
		{"out of range", "animals", 9, &two, nil, "class 9", "parrot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, truth := Mapping(tt.model, tt.predicted, tt.label, tt.names)
			assert.Equal(t, tt.wantPred, pred)
			assert.Equal(t, tt.wantTrue, truth)
		})
	}
}

func TestRegisterCopiesNames(t *testing.T) {
	names := []string{"a", "b"}
	Register("copy", names)
	t.Cleanup(func() { Register("copy", nil) })
	names[0] = "z"

	got, ok := Names("copy")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	Register("copy", nil)
	_, ok = Names("copy")
	assert.False(t, ok)
}
