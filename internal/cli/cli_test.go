package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) {
	t.Setenv("SECRET_KEY", "cli-test-secret")
	t.Setenv("MONGO_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("APP_ENV", "testing")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["import"])
	assert.True(t, names["mail"])
}

func TestImportCommand(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bot: b1
secrets:
  API_KEY: abc
actions:
  - name: greet
    type: pyscript_action
    config:
      source_code: "bot_response = 'hi'"
mail_channel:
  email_account: support@example.com
  interval: 5
`), 0o600))

	out, err := execute(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "bot b1, 1 actions, 1 secrets, 1 documents")
}

func TestImportCommandRejectsBadFile(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actions: []\n"), 0o600))

	_, err := execute(t, "import", path)
	assert.ErrorContains(t, err, "bot is required")
}

func TestMailPollUnknownBot(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "mail", "poll", "nobody")
	assert.Error(t, err)
}

func TestMissingSecretKey(t *testing.T) {
	testEnv(t)
	t.Setenv("SECRET_KEY", "")
	os.Unsetenv("SECRET_KEY")
	_, err := execute(t, "mail", "poll", "b1")
	assert.Error(t, err)
}
