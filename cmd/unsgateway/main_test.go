package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/illmade-knight/uns-gateway/pkg/tagmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

const gatewayYAML = `
mqtt:
  broker_url: tcp://localhost:1883
  allow_public_broker: true
mapping:
  source: file
  file: tags.yaml
`

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"gateway.yaml": gatewayYAML,
		"tags.yaml": `
tags:
  legacy/plc_01/register_4001:
    unit: "°C"
    asset_id: oven-01
    description: Oven Temp
    uns_topic: enterprise/site/line/oven-01/temperature
  legacy/plc_01/register_4002:
    unit: m/s
    asset_id: conveyor-01
    description: Belt Speed
    uns_topic: enterprise/site/line/conveyor-01/speed
`,
	})

	out, err := execute("validate", "--config", filepath.Join(dir, "gateway.yaml"), "--log-level", "disabled")
	require.NoError(t, err)
	assert.Contains(t, out, "config OK: 2 tag mappings from file")
	assert.Contains(t, out, "legacy/plc_01/register_4001 -> enterprise/site/line/oven-01/temperature")
}

func TestValidateCommand_BadMapping(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"gateway.yaml": gatewayYAML,
		"tags.yaml":    "tags:\n  legacy/+/register: {unit: x, asset_id: a, uns_topic: u/v}\n",
	})

	_, err := execute("validate", "--config", filepath.Join(dir, "gateway.yaml"), "--log-level", "disabled")
	var cfgErr *tagmap.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidateCommand_MissingConfig(t *testing.T) {
	_, err := execute("validate", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRootOptions_Logger(t *testing.T) {
	opts := &rootOptions{}
	_, err := opts.logger("debug")
	assert.NoError(t, err)

	opts.logLevel = "loud"
	_, err = opts.logger("debug")
	assert.Error(t, err)
}
