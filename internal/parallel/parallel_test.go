package parallel

import (
	"reflect"
	"testing"
)

func TestChunkFiles(t *testing.T) {
	tests := []struct {
		files []string
		n     int
		want  [][]string
	}{
		{nil, 4, [][]string{nil}},
		{[]string{"a"}, 4, [][]string{{"a"}}},
		{[]string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{[]string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
	}
	for _, tt := range tests {
		got := chunkFiles(tt.files, tt.n)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("chunkFiles(%v, %d) = %v, want %v", tt.files, tt.n, got, tt.want)
		}
	}
}

func TestReduce(t *testing.T) {
	results := []Result{{Status: 1}, {Status: 2}, {Status: 3}}
	sum := Reduce(results, func(r Result) float64 { return float64(r.Status) })
	if sum != 6 {
		t.Errorf("Reduce sum = %v, want 6", sum)
	}
}
