package search

import (
	"math/rand/v2"
	"sort"
	"testing"
)

func TestRadixSort(t *testing.T) {
	tests := []struct {
		name string
		in   []uint32
	}{
		{name: "empty", in: nil},
		{name: "single", in: []uint32{7}},
		{name: "sorted", in: []uint32{1, 2, 3, 4}},
		{name: "reversed", in: []uint32{9, 7, 5, 1}},
		{name: "duplicates", in: []uint32{5, 1, 5, 1, 5}},
		{name: "wide range", in: []uint32{0, 1 << 31, 255, 1 << 24, 65536, 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := append([]uint32(nil), tt.in...)
			radixSort(got)
			want := append([]uint32(nil), tt.in...)
			sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("index %d: got %d, want %d", i, got[i], want[i])
				}
			}
		})
	}
}

func TestRadixSortRandom(t *testing.T) {
	for trial := 0; trial < 10; trial++ {
		in := make([]uint32, 1000)
		for i := range in {
			in[i] = rand.Uint32()
		}
		got := append([]uint32(nil), in...)
		radixSort(got)
		if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }) {
			t.Fatal("not sorted")
		}
	}
}
