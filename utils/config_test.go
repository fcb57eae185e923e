package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArchitecture(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"2 4 1", []int{2, 4, 1}},
		{"2,4,1", []int{2, 4, 1}},
		{" 785, 32 ,\t1 ", []int{785, 32, 1}},
		{"", []int{}},
	}
	for _, tt := range tests {
		got, err := ParseArchitecture(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseArchitectureInvalid(t *testing.T) {
	_, err := ParseArchitecture("2 four 1")
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := Config{Architecture: []int{2, 4, 1}, LearningRate: 0.5, Beta: 1, Epochs: 10}
	require.NoError(t, ValidateConfig(&valid))

	tests := map[string]func(c *Config){
		"too few layers": func(c *Config) { c.Architecture = []int{2, 1} },
		"zero layer":     func(c *Config) { c.Architecture = []int{2, 0, 1} },
		"learning rate":  func(c *Config) { c.LearningRate = 0 },
		"beta":           func(c *Config) { c.Beta = -1 },
		"epochs":         func(c *Config) { c.Epochs = 0 },
	}
	for name, mutate := range tests {
		c := valid
		c.Architecture = append([]int(nil), valid.Architecture...)
		mutate(&c)
		assert.Error(t, ValidateConfig(&c), name)
	}
}
