package review

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nconklindev/unitclean/internal/types"
)

func TestConsole(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected types.Decision
	}{
		{"Keep", "k\n", types.DecisionKeep},
		{"Cancel word", "Cancel\n", types.DecisionCancel},
		{"Delete confirmed", "d\ny\n", types.DecisionDelete},
		{"Delete declined then keep", "d\nn\nkeep\n", types.DecisionKeep},
		{"Unknown answer repeats", "x\n\nc\n", types.DecisionCancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := &Console{In: strings.NewReader(tt.input), Out: &out}

			d, err := c.Present(context.Background(), request("r1"))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
			assert.Contains(t, out.String(), "units.csv: 1 rows contain special characters.")
			assert.Contains(t, out.String(), "#1")
		})
	}
}

func TestConsole_EOF(t *testing.T) {
	c := &Console{In: strings.NewReader(""), Out: io.Discard}

	_, err := c.Present(context.Background(), request("r1"))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
