package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lokie-ree/aida-sub001/internal/assistant"
	"github.com/Lokie-ree/aida-sub001/internal/audit"
	"github.com/Lokie-ree/aida-sub001/internal/doctor"
	"github.com/Lokie-ree/aida-sub001/internal/retention"
	"github.com/Lokie-ree/aida-sub001/internal/testutil"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	expected := []string{"version", "serve", "ask", "retention", "audit", "documents", "doctor"}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, registered[name], "subcommand %q should be registered", name)
	}
}

func TestRootCommand_HelpOutput(t *testing.T) {
	out, err := runCLI(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "HMAC-signed audit log")
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "retention")
}

func TestVersionVars_HaveDefaults(t *testing.T) {
	assert.Equal(t, "dev", Version)
	assert.Equal(t, "none", Commit)
	assert.Equal(t, "unknown", BuildDate)
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	for _, name := range []string{"config", "verbose", "log-level", "log-format", "otel"} {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag %q should be registered", name)
		})
	}
}

func TestRootCommand_UseAndShort(t *testing.T) {
	assert.Equal(t, "aida", rootCmd.Use)
	assert.Equal(t, "Voice assistant for district educators", rootCmd.Short)
}

func TestPackageLevelTracer_IsNotNil(t *testing.T) {
	assert.NotNil(t, tracer, "package-level tracer should be initialized")
}

func TestServeCommand_Flags(t *testing.T) {
	port := serveCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "8080", port.DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("no-scheduler"))
	assert.NotNil(t, serveCmd.Flags().Lookup("no-webhook"))
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "AIDA dev")
	assert.Contains(t, out, "Go:")
}

func TestRenderAuditList(t *testing.T) {
	var buf bytes.Buffer
	renderAuditList(&buf, []audit.Entry{{
		ID:        "e1",
		Action:    audit.ActionVoiceQuery,
		Resource:  audit.ResourceDistrictPolicy,
		Details:   "Query: dress code?",
		IPAddress: "10.0.0.1",
	}})
	out := buf.String()
	assert.Contains(t, out, "showing 1")
	assert.Contains(t, out, "e1 | - | voice_query | district_policy | 10.0.0.1 | Query: dress code?")
}

func TestRenderVerifyResult(t *testing.T) {
	var buf bytes.Buffer
	renderVerifyResult(&buf, "e1", true)
	assert.Contains(t, buf.String(), "VALID")

	buf.Reset()
	renderVerifyResult(&buf, "e2", false)
	assert.Contains(t, buf.String(), "INVALID")
}

func TestPrintOutcome(t *testing.T) {
	out := assistant.Outcome{ResponseText: "Wear closed-toe shoes.", SourceLabels: []string{"Handbook"}, IsPolicyQuery: true}

	var buf bytes.Buffer
	require.NoError(t, printOutcome(&buf, out, false))
	assert.Equal(t, "Wear closed-toe shoes.\n\nSources: Handbook\n", buf.String())

	buf.Reset()
	require.NoError(t, printOutcome(&buf, out, true))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Wear closed-toe shoes.", decoded["response"])
	assert.Equal(t, true, decoded["isPolicyQuery"])
}

func TestCLI_DocumentsAskAuditRetention(t *testing.T) {
	chat := testutil.NewOpenAICompatibleServer("Closed-toe shoes are required in labs.")
	t.Cleanup(chat.Close)
	setupEnv(t, chat.URL)

	doc := filepath.Join(t.TempDir(), "dress-code.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Students must follow the dress code. Closed-toe shoes are required in science labs."), 0o600))

	id, err := runCLI(t, "documents", "add", doc, "--scope", "district-1", "--label", "Board Policy 5132")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	out, err := runCLI(t, "documents", "search", "dress", "code", "--scope", "district-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Board Policy 5132")

	out, err = runCLI(t, "ask", "What is the dress code policy?", "--user", "teacher-1", "--scope", "district-1", "--json")
	require.NoError(t, err)
	var outcome assistant.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, "Closed-toe shoes are required in labs.", outcome.ResponseText)
	assert.Equal(t, []string{"Board Policy 5132"}, outcome.SourceLabels)
	assert.True(t, outcome.IsPolicyQuery)

	out, err = runCLI(t, "audit", "list", "--user", "teacher-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Query: What is the dress code policy?")
	assert.Contains(t, out, audit.ResourceDistrictPolicy)

	out, err = runCLI(t, "retention", "--dry-run")
	require.NoError(t, err)
	var pending map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &pending))
	assert.Equal(t, 0, pending[retention.CollectionAuditLogs])

	out, err = runCLI(t, "retention")
	require.NoError(t, err)
	var res retention.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res.DeletedCount)
	assert.Empty(t, res.Errors)
}

func TestCLI_AskWithoutUserIsNotAudited(t *testing.T) {
	chat := testutil.NewOpenAICompatibleServer("Hello there.")
	t.Cleanup(chat.Close)
	setupEnv(t, chat.URL)

	out, err := runCLI(t, "ask", "How", "are", "you?")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.\n", out)

	out, err = runCLI(t, "audit", "list", "--user", "anyone")
	require.NoError(t, err)
	assert.Contains(t, out, "No audit entries found.")
}

func TestCLI_AuditVerifyUnknownEntry(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")

	_, err := runCLI(t, "audit", "verify", "missing-id")
	assert.Error(t, err)
}

func TestCLI_Doctor(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")

	out, err := runCLI(t, "doctor", "--offline")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ llm_provider")
	assert.Contains(t, out, "⚠ document_index")
	assert.Contains(t, out, "0 failed")
}

func TestRenderDoctorReport(t *testing.T) {
	var buf bytes.Buffer
	renderDoctorReport(&buf, &doctor.Report{
		Checks: []doctor.CheckResult{
			{Name: "signing_key", Status: doctor.StatusWarn, Message: "Using generated default", Fix: "Set AIDA_SIGNING_KEY"},
			{Name: "audit_db", Status: doctor.StatusPass, Message: "ok", Fix: "ignored"},
		},
		Summary: doctor.Summary{Pass: 1, Warn: 1},
	})
	out := buf.String()
	assert.Contains(t, out, "⚠ signing_key: Using generated default\n    fix: Set AIDA_SIGNING_KEY")
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "1 passed, 1 warnings, 0 failed")
}

func setupEnv(t *testing.T, openAIURL string) {
	t.Helper()
	t.Setenv("AIDA_DATA_DIR", t.TempDir())
	t.Setenv("AIDA_SIGNING_KEY", testutil.TestSigningKey)
	t.Setenv("AIDA_LLM_PROVIDER", "openai")
	t.Setenv("AIDA_OPENAI_API_KEY", "sk-test")
	t.Setenv("AIDA_OPENAI_BASE_URL", openAIURL)
}

// runCLI executes the root command with args and returns its stdout. Flag
// variables are package state, so they are reset before each run.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	askUser, askScope, askJSON = "", "", false
	docScope, docLabel, docID, docLimit = "", "", "", 5
	auditUser, auditLimit = "", 20
	retentionDryRun = false
	doctorJSON, doctorOffline = false, false
	logLevel, logFormat = "error", "console"

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}
