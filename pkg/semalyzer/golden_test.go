package semalyzer_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/its-hmny/hrlc/pkg/lexer"
	"github.com/its-hmny/hrlc/pkg/parser"
	"github.com/its-hmny/hrlc/pkg/semalyzer"
)

// golden fixtures bundle a source file and the sequence of diagnostics
// (severity + stable error id, one per line, in report order) the default
// pipeline must produce for it, in the archive format golang.org/x/tools/
// txtar uses for table-driven scripttest-style fixtures. The pipeline runs
// in fail-fast mode, so a fatal diagnostic from the first symbol analysis
// is not reported a second time by the re-analysis of the final phase.
var goldenFixtures = []string{
	`
-- input.hrl --
sub main() {
	let x = 1;
	let x = 2;
	outbox(x);
}
-- expect.txt --
error 3001
note 3001
`,
	`
-- input.hrl --
function main() {
	return 1;
	let unreachable = 2;
}
-- expect.txt --
warning 3008
`,
	`
-- input.hrl --
sub main() {
	let y = 10 / 0;
	outbox(y);
}
-- expect.txt --
error 3004
`,
}

func TestGoldenFixtures(t *testing.T) {
	for i, raw := range goldenFixtures {
		archive := txtar.Parse([]byte(raw))

		var input, expect []byte
		for _, f := range archive.Files {
			switch f.Name {
			case "input.hrl":
				input = f.Data
			case "expect.txt":
				expect = f.Data
			}
		}
		require.NotNil(t, input, "fixture %d missing input.hrl", i)
		require.NotNil(t, expect, "fixture %d missing expect.txt", i)

		tokens, err := lexer.New().Tokenize(input)
		require.NoError(t, err)
		root, err := parser.New(tokens).Parse()
		require.NoError(t, err)

		em := semalyzer.NewErrorManager()
		semalyzer.BuildDefaultPipeline(root, "golden.hrl", em, true).Run(true)
		diags := em.All()

		wantLines := strings.Split(strings.TrimSpace(string(expect)), "\n")
		require.Len(t, diags, len(wantLines), "fixture %d: diagnostic count mismatch", i)

		for j, line := range wantLines {
			fields := strings.Fields(line)
			require.Len(t, fields, 2, "fixture %d: malformed expect line %q", i, line)

			wantSeverity := fields[0]
			wantID, err := strconv.Atoi(fields[1])
			require.NoError(t, err)

			require.Equal(t, wantSeverity, diags[j].Severity.String(), "fixture %d diagnostic %d", i, j)
			require.Equal(t, wantID, diags[j].ErrorID, "fixture %d diagnostic %d", i, j)
		}
	}
}
