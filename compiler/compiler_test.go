package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/munch/compiler/back"
)

func TestCompileFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "main.ir")

	err := os.WriteFile(name, []byte("(func main () (move rv (* (const 6) 7)))\n"), 0o644)
	require.NoError(t, err)

	f, err := Target("x86")
	require.NoError(t, err)

	obj, err := CompileFile(context.Background(), &back.Compiler{Target: f, Validate: true}, name)
	require.NoError(t, err)

	assert.Contains(t, string(obj), "main:\n")
	assert.Contains(t, string(obj), ", 7\n")

	_, err = Target("arm64")
	assert.ErrorContains(t, err, "unknown target")

	_, err = CompileFile(context.Background(), &back.Compiler{Target: f}, filepath.Join(t.TempDir(), "missing.ir"))
	assert.ErrorContains(t, err, "read file")
}
