package copy

import (
	"encoding/json"
	"os"

	"github.com/redacter/dlpcopy/internal/rerrors"
)

// WriteResultJSON persists result as JSON to path (SPEC_FULL's
// `--result-json <path>` supplement, matching the original's reporter.rs
// summary object).
func WriteResultJSON(path string, result Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return rerrors.Wrap(rerrors.KindSystem, err, "marshaling copy result")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o640); err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "writing result json to %s", path)
	}
	return nil
}
