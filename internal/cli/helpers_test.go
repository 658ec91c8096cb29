package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const gesturePipelineYAML = `name: gesture
columns: [accelx, accely, accelz]
group_columns: [Subject]
label_column: Gesture
steps:
  - contract: Windowing
    params: { window_size: 128, delta: 64 }
  - contract: Magnitude
    params: { input_columns: [accelx, accely, accelz] }
  - contract: Downsample
    params: { columns: [Magnitude_0], new_length: 5 }
  - contract: Histogram
    params: { columns: [accelx], number_of_bins: 8 }
  - contract: PME
`

// No name: the file name supplies it.
const shortPipelineYAML = `columns: [accelx, accely, accelz]
steps:
  - contract: Downsample
    params: { columns: [accelx], new_length: 4 }
`

// No segmenter, so the Downsample scratch buffer stays deferred.
const unsegmentedPipelineYAML = `name: unsegmented
columns: [accelx, accely, accelz]
steps:
  - contract: Downsample
    params: { columns: [accelx] }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeResponse decodes a JSON CLIResponse whose data has type T.
func decodeResponse[T any](t *testing.T, output string) (string, T) {
	t.Helper()
	var resp struct {
		Status string    `json:"status"`
		Data   T         `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp), "output: %s", output)
	return resp.Status, resp.Data
}
