package workflowregistry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const runnableYAML = `
name: main
jobs:
  build:
    steps:
      - uses: noop
`

const reusableYAML = `
name: shared
on:
  workflow_call:
    outputs:
      token:
        value: "${{ jobs.setup.outputs.token }}"
jobs:
  setup:
    steps:
      - uses: noop
`

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	assert.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	assert.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestDiscoverFindsRunnableAndReusable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.yaml", runnableYAML)
	writeFile(t, dir, "shared/shared.yml", reusableYAML)

	reg, err := Discover(dir)
	assert.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Len(t, reg.Runnable(), 1)
	assert.Len(t, reg.Reusable(), 1)
}

func TestResolveByRelativePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared/shared.yml", reusableYAML)

	reg, err := Discover(dir)
	assert.NoError(t, err)

	wf, err := reg.Resolve("shared/shared.yml")
	assert.NoError(t, err)
	assert.Equal(t, "shared", wf.Name)
}

func TestResolveUnknownPathErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.yaml", runnableYAML)
	reg, err := Discover(dir)
	assert.NoError(t, err)

	_, err = reg.Resolve("nope.yaml")
	assert.Error(t, err)
}

func TestWorkflowIgnoreExcludesMatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.yaml", runnableYAML)
	writeFile(t, dir, "drafts/wip.yaml", runnableYAML)
	writeFile(t, dir, ".workflowignore", "drafts/\n")

	reg, err := Discover(dir)
	assert.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
}

func TestIsFileRefAndParseFileRef(t *testing.T) {
	assert.True(t, IsFileRef("@file:shared/shared.yml"))
	assert.False(t, IsFileRef("checkout"))

	path, err := ParseFileRef("@file:shared/shared.yml#setup")
	assert.NoError(t, err)
	assert.Equal(t, "shared/shared.yml#setup", path)

	path, err = ParseFileRef("@file:shared/shared.yml")
	assert.NoError(t, err)
	assert.Equal(t, "shared/shared.yml", path)
}

func TestParseFileRefRejectsNonFileRef(t *testing.T) {
	_, err := ParseFileRef("checkout")
	assert.Error(t, err)
}
