package cmd

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShell_DivideAndInverseKeepOutput(t *testing.T) {
	workdir := t.TempDir()
	sample := writeSample(t, t.TempDir(), []byte("0123456789"))

	script := strings.Join([]string{
		"load " + sample,
		"div -n 2 0+6",
		"vd",
		"fill i2",
		"cmds",
		"quit",
		"fill 0+1",
	}, "\n")

	stdout, stderr := runScript(t, workdir, script, "--"+keepOutputFlagName)

	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "[+] 2.bin")
	assert.Contains(t, stdout, "[+] 3.bin")
	assert.Contains(t, stdout, "2 ░░░███")
	assert.Contains(t, stdout, "3 ███░░░")
	assert.Contains(t, stdout, "[*] list: 3+3")
	assert.Contains(t, stdout, "0+6")
	assert.NotContains(t, stdout, "5.bin", "lines after quit are not executed")

	data, err := os.ReadFile(filepath.Join(workdir, "output", "1", "2.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00\x00\x00"+"3456789"), data)

	data, err = os.ReadFile(filepath.Join(workdir, "output", "2", "4.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("012"+"\x00\x00\x00"+"6789"), data)

	_, err = os.Stat(filepath.Join(workdir, "backups"))
	assert.True(t, os.IsNotExist(err), "backups are removed at exit")
}

func TestShell_TeardownRemovesOutputs(t *testing.T) {
	workdir := t.TempDir()
	sample := writeSample(t, t.TempDir(), []byte("0123456789"))

	_, stderr := runScript(t, workdir, "load "+sample+"\nhalf 0+8\n")

	assert.Empty(t, stderr)

	_, err := os.Stat(filepath.Join(workdir, "output"))
	assert.True(t, os.IsNotExist(err), "output tree is removed at exit")

	_, err = os.Stat(filepath.Join(workdir, "backups"))
	assert.True(t, os.IsNotExist(err), "backups are removed at exit")

	_, err = os.Stat(sample)
	require.NoError(t, err, "the loaded input is never touched")
}

func TestShell_ErrorsDoNotEndSession(t *testing.T) {
	workdir := t.TempDir()
	sample := writeSample(t, t.TempDir(), []byte("0123456789"))

	script := strings.Join([]string{
		"fill 0+3",
		"load " + sample,
		"fill 8+5",
		"bogus",
		"diff 99",
		"fill 0+1",
	}, "\n")

	stdout, stderr := runScript(t, workdir, script)

	assert.Equal(t, 4, strings.Count(stderr, "[-]"), stderr)
	assert.Contains(t, stderr, "no file loaded")
	assert.Contains(t, stderr, "unknown command")
	assert.Contains(t, stdout, "[+] 2.bin")
}

func TestShell_DiffAgainstParent(t *testing.T) {
	workdir := t.TempDir()
	sample := writeSample(t, t.TempDir(), []byte("0123456789abcdef"))

	stdout, stderr := runScript(t, workdir, "load "+sample+"\nfill 0+2\ndiff 2\ndiff 1 1\n")

	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "--- #1")
	assert.Contains(t, stdout, "+++ #2")
	assert.Contains(t, stdout, "no differences")
}

func TestShell_ExportWritesLineage(t *testing.T) {
	workdir := t.TempDir()
	sample := writeSample(t, t.TempDir(), []byte("0123456789"))
	target := filepath.Join(t.TempDir(), "lineage.yaml")

	_, stderr := runScript(t, workdir, "load "+sample+"\nfill 1+2 4+1\nexport "+target+"\n")
	assert.Empty(t, stderr)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "command_line: fill 1+2 4+1")
	assert.Contains(t, string(data), "- 1+2")
	assert.Contains(t, string(data), "- 4+1")
}

func TestShell_RunExternalTool(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	stdout, stderr := runScript(t, t.TempDir(), "run echo scanner says hi\n")

	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "scanner says hi")
}

func TestShell_CounterAndCommandLine(t *testing.T) {
	sh := newShell(nil, &bytes.Buffer{}, true)

	assert.Zero(t, sh.Counter())
	assert.False(t, sh.Exec(t.Context(), "   "))
	assert.False(t, sh.Exec(t.Context(), "# comment"))
	assert.Zero(t, sh.Counter(), "blank and comment lines are not counted")

	assert.True(t, sh.Exec(t.Context(), "quit"))
	assert.Equal(t, uint64(1), sh.Counter())
	assert.Equal(t, "quit", sh.CommandLine())
}

func TestShell_Expand(t *testing.T) {
	sh := newShell(nil, &bytes.Buffer{}, true)
	sh.SetVar("all", "0+10")
	sh.SetVar("out", "/work/output/3")

	got := sh.expand([]string{"$all", "$out/7.bin", "$out/", "$missing", "p2", "x$all"})

	assert.Equal(t, []string{"0+10", "/work/output/3/7.bin", "/work/output/3/", "$missing", "p2", "x$all"}, got)
	assert.Equal(t, map[string]string{"$all": "0+10", "$out": "/work/output/3"}, sh.Vars())
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestShell_RestoreFromParent(t *testing.T) {
	workdir := t.TempDir()
	sample := writeSample(t, t.TempDir(), []byte("0123456789"))

	script := strings.Join([]string{
		"load " + sample,
		"fill 0+4",
		"load 2",
		"restore 1+2",
		"restore --from 1 p3",
	}, "\n")

	stdout, stderr := runScript(t, workdir, script, "--"+keepOutputFlagName)

	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "[+] 3.bin")
	assert.Contains(t, stdout, "[+] 4.bin")

	data, err := os.ReadFile(filepath.Join(workdir, "output", "2", "3.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x0012\x00456789"), data)

	data, err = os.ReadFile(filepath.Join(workdir, "output", "3", "4.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x0012\x00456789"), data)
}
