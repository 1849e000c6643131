package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRender(t *testing.T) {
	src := "# Hello\n\n```mermaid\ngraph TD\n  A-->B\n```\n"

	out, err := execute(t, src, "render")
	require.NoError(t, err)
	assert.Contains(t, out, `<div class="mermaid">`)
	assert.Contains(t, out, `id="hello"`)

	out, err = execute(t, src, "render", "--format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, src, out)

	_, err = execute(t, src, "render", "--format", "docx")
	assert.Error(t, err)
}

func TestRender_StandaloneToFile(t *testing.T) {
	in := writeFile(t, "guide.md", "# Guide\n\ntext\n")
	dst := filepath.Join(t.TempDir(), "guide.html")

	_, err := execute(t, "", "render", in, "--format", "html", "-o", dst)
	require.NoError(t, err)
	page, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>guide</title>")
	assert.Contains(t, string(page), "<h1")
}

func TestRender_PluginSettings(t *testing.T) {
	settings := writeFile(t, "plugins.toml", "[plugins.\"syntax.mermaid\"]\nenabled = false\n")

	out, err := execute(t, "```mermaid\ngraph TD\n```\n", "render", "--plugins", settings)
	require.NoError(t, err)
	assert.NotContains(t, out, `<div class="mermaid">`)

	bad := writeFile(t, "plugins.yaml", "plugins:\n  no.such.plugin:\n    enabled: true\n")
	_, err = execute(t, "text", "render", "--plugins", bad)
	assert.Error(t, err)
}

func TestRender_WatchNeedsFileAndOut(t *testing.T) {
	_, err := execute(t, "x", "render", "--watch")
	assert.ErrorContains(t, err, "file argument")

	in := writeFile(t, "a.md", "x")
	_, err = execute(t, "", "render", "--watch", in)
	assert.ErrorContains(t, err, "--out")
}

func TestFormat(t *testing.T) {
	out, err := execute(t, "é world", "format", "bold", "--anchor", "0", "--head", "1", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"**é** world","anchor":5,"head":5}`, out)

	out, err = execute(t, "Title", "format", "heading", "--level", "2")
	require.NoError(t, err)
	assert.Equal(t, "## Title", out)

	_, err = execute(t, "x", "format", "blink")
	assert.ErrorContains(t, err, "unknown action")
}

func TestFormat_InPlace(t *testing.T) {
	path := writeFile(t, "list.md", "one\ntwo")

	_, err := execute(t, "", "format", "bullet-list", path, "--anchor", "5", "--head", "5", "-i")
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\n- two", string(got))

	_, err = execute(t, "x", "format", "bold", "-i")
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	out, err := execute(t, `<h2>Notes</h2><div class="mermaid">graph TD</div>`, "import")
	require.NoError(t, err)
	assert.Contains(t, out, "## Notes")
	assert.Contains(t, out, "```mermaid\ngraph TD\n```")
}

func TestOutline(t *testing.T) {
	out, err := execute(t, "# One\n\n## Two\n\ntext\n", "outline")
	require.NoError(t, err)
	assert.Equal(t, "One #one\n  Two #two\n", out)
}

func TestPlugins(t *testing.T) {
	settings := writeFile(t, "plugins.yaml", "plugins:\n  autocomplete.emoji:\n    enabled: false\n")

	out, err := execute(t, "", "plugins", "--plugins", settings, "--kind", "autocomplete")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, out, "autocomplete.emoji")
	for _, l := range lines[1:] {
		if strings.HasPrefix(l, "autocomplete.emoji") {
			assert.Contains(t, l, "disabled")
		} else {
			assert.Contains(t, l, "enabled")
		}
	}

	_, err = execute(t, "", "plugins", "--kind", "widgets")
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	out, err := execute(t, "# Title\n\nSome *text*.\n", "preview", "--style", "notty")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "text")
}

func TestRender_LuaScript(t *testing.T) {
	dir := t.TempDir()
	script := "function transform(source, config)\n  return string.upper(source)\nend\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shout.lua"), []byte(script), 0o644))
	settings := filepath.Join(dir, "plugins.toml")
	require.NoError(t, os.WriteFile(settings, []byte("[scripts]\n\"transform.shout\" = \"shout.lua\"\n"), 0o644))

	out, err := execute(t, "quiet words", "render", "--plugins", settings)
	require.NoError(t, err)
	assert.Contains(t, out, "QUIET WORDS")

	out, err = execute(t, "", "plugins", "--plugins", settings, "--kind", "transform")
	require.NoError(t, err)
	assert.Contains(t, out, "transform.shout")
}
