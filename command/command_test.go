package command

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parthashirolkar/latch/engine"
	"github.com/parthashirolkar/latch/vaultfile"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	store := vaultfile.New(filepath.Join(t.TempDir(), vaultfile.FileName))
	return New(engine.New(store))
}

func handle(t *testing.T, d *Dispatcher, req string) map[string]any {
	t.Helper()
	raw := d.Handle(context.Background(), []byte(req))
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "response was not an object: %s", raw)
	return out
}

func requireSuccess(t *testing.T, resp map[string]any) {
	t.Helper()
	require.Equal(t, "success", resp["status"], "unexpected error: %v", resp["message"])
}

func TestVaultStatusAndInit(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)

	resp := handle(t, d, `{"command":"vault_status"}`)
	requireSuccess(t, resp)
	require.Equal(t, false, resp["has_vault"])
	require.Equal(t, false, resp["is_unlocked"])

	resp = handle(t, d, fmt.Sprintf(`{"command":"init_vault_with_key","key_hex":%q,"kdf":"none"}`, testKeyHex))
	requireSuccess(t, resp)

	resp = handle(t, d, `{"command":"vault_status"}`)
	require.Equal(t, true, resp["has_vault"])
	require.Equal(t, true, resp["is_unlocked"])

	resp = handle(t, d, fmt.Sprintf(`{"command":"init_vault_with_key","key_hex":%q,"kdf":"none"}`, testKeyHex))
	require.Equal(t, "error", resp["status"])
}

func TestEntryCommands(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	requireSuccess(t, handle(t, d, fmt.Sprintf(`{"command":"init_vault_with_key","key_hex":%q,"kdf":"none"}`, testKeyHex)))

	resp := handle(t, d, `{"command":"add_entry","title":"GitHub","username":"alice","password":"hunter2","url":"https://github.com"}`)
	requireSuccess(t, resp)
	id, _ := resp["id"].(string)
	require.NotEmpty(t, id)

	// search success serializes as a top-level array
	raw := d.Handle(context.Background(), []byte(`{"command":"search_entries","query":"git"}`))
	var results []map[string]any
	require.NoError(t, json.Unmarshal(raw, &results), "expected array, got: %s", raw)
	require.Len(t, results, 1)
	require.Equal(t, id, results[0]["id"])
	require.Equal(t, "GitHub", results[0]["title"])
	require.Equal(t, "alice", results[0]["username"])
	require.NotContains(t, results[0], "password", "previews never carry secrets")

	resp = handle(t, d, fmt.Sprintf(`{"command":"request_secret","entryId":%q,"field":"password"}`, id))
	requireSuccess(t, resp)
	require.Equal(t, "hunter2", resp["value"])

	resp = handle(t, d, fmt.Sprintf(`{"command":"request_secret","entryId":%q,"field":"title"}`, id))
	require.Equal(t, "error", resp["status"])

	resp = handle(t, d, fmt.Sprintf(`{"command":"get_full_entry","entryId":%q}`, id))
	requireSuccess(t, resp)
	require.Equal(t, "GitHub", resp["title"])
	require.Equal(t, "hunter2", resp["password"])

	resp = handle(t, d, fmt.Sprintf(`{"command":"update_entry","id":%q,"title":"GitHub Work","username":"alice","password":"hunter3"}`, id))
	requireSuccess(t, resp)

	resp = handle(t, d, fmt.Sprintf(`{"command":"delete_entry","entryId":%q}`, id))
	requireSuccess(t, resp)

	resp = handle(t, d, fmt.Sprintf(`{"command":"delete_entry","entryId":%q}`, id))
	require.Equal(t, "error", resp["status"])
}

func TestLockedGuard(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	requireSuccess(t, handle(t, d, fmt.Sprintf(`{"command":"init_vault_with_key","key_hex":%q,"kdf":"none"}`, testKeyHex)))
	requireSuccess(t, handle(t, d, `{"command":"lock_vault"}`))

	for _, cmd := range []string{
		`{"command":"add_entry","title":"X","password":"p"}`,
		`{"command":"search_entries","query":"xx"}`,
		`{"command":"request_secret","entryId":"e","field":"password"}`,
		`{"command":"check_vault_health"}`,
		`{"command":"get_auth_preferences"}`,
	} {
		resp := handle(t, d, cmd)
		require.Equal(t, "error", resp["status"], cmd)
		require.Equal(t, "locked", resp["message"], cmd)
	}

	// unauthenticated commands keep working while locked
	requireSuccess(t, handle(t, d, `{"command":"vault_status"}`))
	requireSuccess(t, handle(t, d, `{"command":"generate_password"}`))
	requireSuccess(t, handle(t, d, `{"command":"analyze_password_strength","password":"abc"}`))
	requireSuccess(t, handle(t, d, `{"command":"get_vault_auth_method"}`))
}

func TestAnalyzeAndGenerate(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)

	resp := handle(t, d, `{"command":"analyze_password_strength","password":"Tr0ub4dor&3"}`)
	requireSuccess(t, resp)
	require.EqualValues(t, 3, resp["score"])
	require.Equal(t, "Strong", resp["label"])
	require.Greater(t, resp["entropy"], 60.0)

	resp = handle(t, d, `{"command":"generate_password","length":24,"symbols":false}`)
	requireSuccess(t, resp)
	password, _ := resp["password"].(string)
	require.Len(t, password, 24)

	resp = handle(t, d, `{"command":"generate_password","length":200}`)
	requireSuccess(t, resp)
	password, _ = resp["password"].(string)
	require.Len(t, password, 128, "length clamps into range")
}

func TestUnknownAndMalformed(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)

	resp := handle(t, d, `{"command":"drop_tables"}`)
	require.Equal(t, "error", resp["status"])

	raw := d.Handle(context.Background(), []byte(`{not json`))
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, "error", out["status"])
	require.Equal(t, "malformed request", out["message"])
}

func TestAuthPreferencesCommand(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	requireSuccess(t, handle(t, d, fmt.Sprintf(`{"command":"init_vault_with_key","key_hex":%q,"kdf":"none"}`, testKeyHex)))

	resp := handle(t, d, `{"command":"get_auth_preferences"}`)
	requireSuccess(t, resp)
	require.Equal(t, "biometric-keychain", resp["auth_method"])
	require.Equal(t, true, resp["session_valid"])
	remaining, _ := resp["session_remaining_seconds"].(float64)
	require.InDelta(t, 1800, remaining, 2)
}

func TestReencryptCommand(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	requireSuccess(t, handle(t, d, fmt.Sprintf(`{"command":"init_vault_with_key","key_hex":%q,"kdf":"none"}`, testKeyHex)))
	requireSuccess(t, handle(t, d, `{"command":"add_entry","title":"Solo","password":"p"}`))

	newKey := "ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100"
	requireSuccess(t, handle(t, d, fmt.Sprintf(`{"command":"reencrypt_vault","new_key_hex":%q,"new_kdf":"none","new_salt":""}`, newKey)))

	requireSuccess(t, handle(t, d, `{"command":"lock_vault"}`))

	resp := handle(t, d, fmt.Sprintf(`{"command":"unlock_vault_with_key","key_hex":%q}`, testKeyHex))
	require.Equal(t, "error", resp["status"])
	require.Equal(t, "authentication failed", resp["message"])

	requireSuccess(t, handle(t, d, fmt.Sprintf(`{"command":"unlock_vault_with_key","key_hex":%q}`, newKey)))

	raw := d.Handle(context.Background(), []byte(`{"command":"search_entries","query":"solo"}`))
	var results []map[string]any
	require.NoError(t, json.Unmarshal(raw, &results))
	require.Len(t, results, 1)
}

func TestTOTPCommand(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	requireSuccess(t, handle(t, d, fmt.Sprintf(`{"command":"init_vault_with_key","key_hex":%q,"kdf":"none"}`, testKeyHex)))

	resp := handle(t, d, `{"command":"add_entry","title":"2FA Mail","password":"p","totp":"JBSWY3DPEHPK3PXP"}`)
	requireSuccess(t, resp)
	id, _ := resp["id"].(string)

	resp = handle(t, d, fmt.Sprintf(`{"command":"get_totp","entryId":%q}`, id))
	requireSuccess(t, resp)
	code, _ := resp["code"].(string)
	require.Len(t, code, 6)
	require.Greater(t, resp["period_remaining_seconds"], 0.0)

	// entries without a secret report not found
	resp = handle(t, d, `{"command":"add_entry","title":"Plain","password":"p"}`)
	id2, _ := resp["id"].(string)
	resp = handle(t, d, fmt.Sprintf(`{"command":"get_totp","entryId":%q}`, id2))
	require.Equal(t, "error", resp["status"])
}
