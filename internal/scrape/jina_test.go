package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/firm-research/pkg/jina"
)

func TestNeedsFallback(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name string
		resp *jina.ReadResponse
		want bool
	}{
		{"nil response", nil, true},
		{"error code", &jina.ReadResponse{Code: 451}, true},
		{"too short", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "tiny"}}, true},
		{
			"cloudflare challenge",
			&jina.ReadResponse{Code: 200, Data: jina.ReadData{
				Content: "Just a moment... checking your browser before accessing the site. " + string(long[:100]),
			}},
			true,
		},
		{
			"normal content",
			&jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: string(long)}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsFallback(tt.resp))
		})
	}
}
