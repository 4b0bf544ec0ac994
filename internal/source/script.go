package source

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/query"
)

// scriptFetcher runs an external executable and decodes its stdout the
// same way a file source is decoded. Cancellation of the run context
// kills the child process.
type scriptFetcher struct {
	command string
	args    []string
	eval    *query.Evaluator
}

func (f *scriptFetcher) fetch(ctx context.Context, args *config.Extract) ([]Record, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.command, f.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("running %s: %w: %s", f.command, err, bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, fmt.Errorf("running %s: %w", f.command, err)
	}

	return decodeRecords(f.eval, args, stdout.Bytes())
}
