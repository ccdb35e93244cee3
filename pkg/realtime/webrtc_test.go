package realtime

import "testing"

func TestSeqGap(t *testing.T) {
	tests := []struct {
		last, next uint16
		want       bool
	}{
		{10, 11, false},
		{10, 13, true},
		{10, 10, true},
		{65535, 0, false}, // wraparound is not a gap
		{65535, 1, true},
	}
	for _, tt := range tests {
		if got := seqGap(tt.last, tt.next); got != tt.want {
			t.Errorf("seqGap(%d, %d) = %v, want %v", tt.last, tt.next, got, tt.want)
		}
	}
}
