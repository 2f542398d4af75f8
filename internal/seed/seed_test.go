package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/keyvault"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	"github.com/Chative-core-poc-v1/actionserver/internal/store/memstore"
)

type vault struct {
	*keyvault.Cipher
	secrets map[string]string
}

func newVault(t *testing.T) *vault {
	t.Helper()
	c, err := keyvault.NewCipher("seed-test-secret")
	require.NoError(t, err)
	return &vault{Cipher: c, secrets: map[string]string{}}
}

func (v *vault) Put(_ context.Context, bot, key, value string) error {
	v.secrets[bot+"/"+key] = value
	return nil
}

const botYAML = `
bot: b1
secrets:
  WEATHER_KEY: s3cret
actions:
  - name: get_weather
    type: http_action
    config:
      http_url: https://api.example.com/weather
      request_method: GET
      response:
        value: "${data.temp}"
        dispatch: true
  - name: validate_profile
    type: form_validation_action
    config:
      slot: age
      validation_semantic: "slot > 0"
  - name: validate_profile
    type: form_validation_action
    config:
      slot: city
      status: false
callbacks:
  - name: payment_cb
    pyscript_code: "bot_response = 'ok'"
training_examples:
  - intent: greet
    text: hello there
mail_channel:
  email_account: support@example.com
  email_password: hunter2
  imap_server: imap.example.com
  interval: 5
`

func TestImport(t *testing.T) {
	t.Parallel()
	f, err := Decode(strings.NewReader(botYAML))
	require.NoError(t, err)

	st := memstore.New()
	secrets := newVault(t)
	ctx := context.Background()
	sum, err := Import(ctx, st, secrets, f)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Actions: 3, Secrets: 1, Documents: 3}, sum)
	assert.Equal(t, "s3cret", secrets.secrets["b1/WEATHER_KEY"])

	var httpCfg model.HTTPActionConfig
	require.NoError(t, st.FindOne(ctx, model.CollectionHTTPAction, bson.M{"bot": "b1", "name": "get_weather"}, &httpCfg))
	assert.Equal(t, "https://api.example.com/weather", httpCfg.URL)
	assert.Equal(t, "${data.temp}", httpCfg.Response.Value)
	assert.True(t, httpCfg.Status)

	var rec model.ActionRecord
	require.NoError(t, st.FindOne(ctx, model.CollectionActions, bson.M{"bot": "b1", "name": "get_weather"}, &rec))
	assert.Equal(t, model.ActionHTTP, rec.Type)

	var forms []model.FormValidationConfig
	require.NoError(t, st.Find(ctx, model.CollectionFormValidation, bson.M{"bot": "b1"}, store.FindOptions{SortBy: "slot"}, &forms))
	require.Len(t, forms, 2)
	assert.True(t, forms[0].Status)
	assert.False(t, forms[1].Status)
	assert.Equal(t, "age", forms[0].SlotName)
	assert.Equal(t, 2, st.Len(model.CollectionActions))

	var mc model.MailChannelConfig
	require.NoError(t, st.FindOne(ctx, model.CollectionMailChannelConfig, bson.M{"bot": "b1"}, &mc))
	assert.Equal(t, 5, mc.Interval)
	assert.True(t, mc.Status)
	assert.NotEqual(t, "hunter2", mc.EmailPassword)
	plain, err := secrets.Decrypt(mc.EmailPassword)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
	assert.Equal(t, "hunter2", f.MailChannel.EmailPassword)

	_, err = Import(ctx, st, secrets, f)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len(model.CollectionHTTPAction))
}

func TestImportRejectsUnknownType(t *testing.T) {
	t.Parallel()
	f, err := Decode(strings.NewReader("bot: b1\nactions:\n  - name: x\n    type: teleport_action\n"))
	require.NoError(t, err)
	_, err = Import(context.Background(), memstore.New(), newVault(t), f)
	assert.True(t, errx.IsKind(err, errx.KindUnsupportedActionType))
}

func TestDecodeValidation(t *testing.T) {
	t.Parallel()
	_, err := Decode(strings.NewReader("actions: []\n"))
	assert.ErrorContains(t, err, "bot is required")

	_, err = Decode(strings.NewReader("bot: b1\nunknown_section: true\n"))
	assert.Error(t, err)
}
