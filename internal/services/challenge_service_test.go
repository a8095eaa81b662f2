package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChallengeRef(t *testing.T) {
	tests := []struct {
		name    string
		matiere string
		id      int
		want    string
	}{
		{name: "three letter prefix", matiere: "sydney", id: 1, want: "SYD-001"},
		{name: "short subject kept whole", matiere: "go", id: 12, want: "GO-012"},
		{name: "exact three letters", matiere: "tcp", id: 7, want: "TCP-007"},
		{name: "large id not truncated", matiere: "maths", id: 1234, want: "MAT-1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, challengeRef(tt.matiere, tt.id))
		})
	}
}
