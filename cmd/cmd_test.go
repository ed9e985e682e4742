package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theanmol-raj/qnagen/internal/sheet"
)

// isolate points config discovery at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, k := range []string{"QNAGEN_PROVIDER", "QNAGEN_MODEL", "QNAGEN_API_KEY", "QNAGEN_DB", "QNAGEN_TEMPLATE_FILE"} {
		t.Setenv(k, "")
	}
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateDryRun(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(in, []byte("Questions,Answers\nWhat is 2+2?,4\nCapital of France?,Paris\n"), 0o644))

	stdout, err := execute(t, "generate", "--no-history", "--dry-run", "-i", in, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Rows:      2 (2 ok, 0 failed)")
	assert.Contains(t, stdout, out)

	table, err := sheet.Read(out, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Questions", "Answers", "Generated questions", "Generated answers"}, table.Headers)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"What is 2+2?", "4", "(dry run)", "(dry run)"}, table.Rows[0])
}

func TestGenerateMissingColumn(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "bad.csv")
	out := filepath.Join(dir, "bad-out.csv")
	require.NoError(t, os.WriteFile(in, []byte("Prompt,Reply\na,b\n"), 0o644))

	_, err := execute(t, "generate", "--no-history", "--dry-run", "-i", in, "-o", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Questions")
	assert.NoFileExists(t, out)
}

func TestGenerateRecordsHistory(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	db := filepath.Join(dir, "runs.db")
	require.NoError(t, os.WriteFile(in, []byte("Questions,Answers\nq,a\n"), 0o644))

	_, err := execute(t, "generate", "--db", db, "--no-history=false", "--dry-run", "-i", in, "-o", out)
	require.NoError(t, err)

	stdout, err := execute(t, "history", "--db", db, "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "in.csv")
	assert.Contains(t, stdout, "mock")
}

func TestSheets(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "one.csv")
	require.NoError(t, os.WriteFile(in, []byte("Questions,Answers\nq,a\n"), 0o644))

	stdout, err := execute(t, "sheets", in)
	require.NoError(t, err)
	assert.Equal(t, sheet.CSVSheet+"\n", stdout)
}

func TestModels(t *testing.T) {
	isolate(t)
	stdout, err := execute(t, "models")
	require.NoError(t, err)
	assert.Contains(t, stdout, "GPT-4o (OpenAI)")
	assert.Contains(t, stdout, "anthropic-gateway")
}
