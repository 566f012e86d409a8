package fetchwork

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharedCounterTranscript(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	c := NewSharedCounter(&buf)
	final := c.Run(10)

	// No lost updates: the final value is exactly the worker count.
	r.Equal(10, final)
	r.Equal(10, c.Value())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	r.Len(lines, 12)

	// Start and done frame the worker output: "starting threads" is
	// complete before any worker prints, "done!" only after the join.
	r.Equal("starting threads", lines[0])
	r.Equal("done!", lines[11])

	// The printed values form a strictly increasing sequence even
	// though the worker identities behind them are nondeterministic.
	for i := 1; i <= 10; i++ {
		r.Equal(fmt.Sprintf("counter = %d", i), lines[i])
	}
}

// Every line the demo emits must be the output of exactly one lock
// holder: no partial lines, no character-level interleaving.
func TestSharedCounterLinesNeverInterleave(t *testing.T) {
	r := require.New(t)

	line := regexp.MustCompile(`^(starting threads|done!|counter = \d+)$`)

	var buf bytes.Buffer
	final := NewSharedCounter(&buf).Run(50)
	r.Equal(50, final)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	r.Len(lines, 52)

	seen := make(map[string]bool)
	for _, l := range lines {
		r.Regexp(line, l)
		r.False(seen[l], "line %q printed twice", l)
		seen[l] = true
	}
}

func TestSharedCounterZeroWorkers(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	r.Equal(0, NewSharedCounter(&buf).Run(0))
	r.Equal("starting threads\ndone!\n", buf.String())
}
