package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	events := []Event{
		{ID: 1, Title: "Career Fair"},
		{ID: 2, Title: "Guest Talk"},
		{ID: 3, Title: "Spring fair"},
	}

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"empty query keeps all", "", []int64{1, 2, 3}},
		{"whitespace query keeps all", "  \t", []int64{1, 2, 3}},
		{"case insensitive substring", "FAIR", []int64{1, 3}},
		{"mid-word match", "alk", []int64{2}},
		{"no match", "concert", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(events, tt.query)
			assert.NotNil(t, got)
			ids := []int64{}
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilter_DoesNotAliasInput(t *testing.T) {
	events := []Event{{ID: 1, Title: "A"}}

	got := Filter(events, "")
	got[0].Title = "changed"

	assert.Equal(t, "A", events[0].Title)
}
