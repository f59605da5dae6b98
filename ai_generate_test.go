package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeneratedCasesFencedJSON(t *testing.T) {
	content := "```json\n[{\"title\":\"Login happy path\",\"description\":\"d\"," +
		"\"steps\":[{\"stepNumber\":9,\"description\":\"open page\"},{\"stepNumber\":9,\"description\":\"submit\"}]," +
		"\"expectedResult\":\"ok\",\"priority\":\"high\",\"type\":\"functional\"}]\n```"

	drafts := parseGeneratedCases(content, "functional", 3)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Login happy path", drafts[0].Title)
	assert.Equal(t, "high", drafts[0].Priority)
	// step numbers come from position, not from the model
	require.Len(t, drafts[0].Steps, 2)
	assert.Equal(t, 1, drafts[0].Steps[0].StepNumber)
	assert.Equal(t, 2, drafts[0].Steps[1].StepNumber)
}

func TestParseGeneratedCasesArrayBuriedInProse(t *testing.T) {
	content := `Sure! Here are your test cases:
[{"title":"One","priority":"nonsense","type":"martian","steps":[]}]
Hope this helps.`

	drafts := parseGeneratedCases(content, "security", 5)
	require.Len(t, drafts, 1)
	assert.Equal(t, "One", drafts[0].Title)
	// invalid enum values are normalized, not rejected
	assert.Equal(t, "medium", drafts[0].Priority)
	assert.Equal(t, "security", drafts[0].Type)
}

func TestParseGeneratedCasesUnparsableFallsBackToPlaceholders(t *testing.T) {
	content := "I am sorry, I cannot produce JSON today."

	drafts := parseGeneratedCases(content, "functional", 4)
	require.Len(t, drafts, 4)
	for _, d := range drafts {
		assert.Equal(t, "functional", d.Type)
		assert.Equal(t, content, d.Notes)
		require.Len(t, d.Steps, 1)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "sam", RoleTester))

	// without a key configured the endpoint refuses up front
	rec := doJSON(t, r, http.MethodPost, "/api/ai/generate", sess, map[string]any{"prompt": "login form"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/v1/chat/completions", req.URL.Path)
		require.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
		content := `[{"title":"Generated A","steps":[{"description":"s1"}],"priority":"low","type":"functional"}]`
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer upstream.Close()
	cfg.OpenAIKey = "test-key"
	cfg.OpenAIModel = "gpt-4o-mini"
	cfg.OpenAIBaseURL = upstream.URL

	rec = doJSON(t, r, http.MethodPost, "/api/ai/generate", sess, map[string]any{
		"prompt": "login form", "count": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[struct {
		AITestCaseID int64               `json:"aiTestCaseId"`
		TestCases    []GeneratedTestCase `json:"testCases"`
	}](t, rec)
	require.NotZero(t, out.AITestCaseID)
	require.Len(t, out.TestCases, 1)
	assert.Equal(t, "Generated A", out.TestCases[0].Title)

	// the prompt and raw response are kept for audit
	audit, err := store.GetAITestCase(out.AITestCaseID)
	require.NoError(t, err)
	require.NotNil(t, audit)
	assert.Equal(t, "login form", audit.Prompt)
	assert.False(t, audit.Imported)
}

func TestGenerateEndpointValidation(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "sam", RoleTester))

	rec := doJSON(t, r, http.MethodPost, "/api/ai/generate", sess, map[string]any{"prompt": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/ai/generate", sess, map[string]any{
		"prompt": "x", "testType": "martian",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportEndpoint(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "sam", RoleTester))

	audit := AITestCase{Prompt: "p", Response: "raw", CreatedBy: 1}
	require.NoError(t, store.CreateAITestCase(&audit))

	rec := doJSON(t, r, http.MethodPost, "/api/ai/import", sess, map[string]any{
		"aiTestCaseId": audit.ID,
		"testCases": []map[string]any{
			{
				"title":    "Imported case",
				"priority": "high",
				"type":     "functional",
				"steps":    []map[string]any{{"description": "do it", "expectedResult": "done"}},
			},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	out := decodeBody[struct {
		TestCases []TestCase `json:"testCases"`
	}](t, rec)
	require.Len(t, out.TestCases, 1)
	assert.Equal(t, StatusPending, out.TestCases[0].Status)

	steps, err := store.GetTestSteps(out.TestCases[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 1, steps[0].StepNumber)

	after, err := store.GetAITestCase(audit.ID)
	require.NoError(t, err)
	assert.True(t, after.Imported)

	// missing audit record
	rec = doJSON(t, r, http.MethodPost, "/api/ai/import", sess, map[string]any{
		"aiTestCaseId": int64(999),
		"testCases":    []map[string]any{{"title": "x"}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
