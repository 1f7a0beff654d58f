package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"molgenx/config"
	"molgenx/models"
	"molgenx/services"
)

const optimizeResponse = `{
	"optimized_compounds": "[{\"rank\":1,\"name\":\"Low tox\",\"smiles\":\"CCO\",\"metrics\":{\"druglikeness\":0.6,\"toxicity\":1.5}},{\"rank\":2,\"name\":\"High tox\",\"metrics\":{\"druglikeness\":0.9,\"toxicity\":7}}]",
	"explanation": "toxicity weighted up"
}`

func backend(t *testing.T, body string, gotWeights *models.OptimizationWeights) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotWeights != nil {
			var req struct {
				Weights models.OptimizationWeights `json:"weights"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			*gotWeights = req.Weights
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{APIBaseURL: baseURL, RequestTimeout: 5 * time.Second, ProteinKeyMode: "any"}
}

func TestRunOptimize_JSON(t *testing.T) {
	var weights models.OptimizationWeights
	srv := backend(t, optimizeResponse, &weights)

	opts := &options{
		protein:     "1abc",
		weights:     []string{"toxicity=2", "solubility = 0.1"},
		sortBy:      "toxicity-asc",
		maxToxicity: 5,
		asJSON:      true,
	}
	var out bytes.Buffer
	require.NoError(t, runOptimize(context.Background(), testConfig(srv.URL), opts, &out, io.Discard, zap.NewNop()))

	assert.Equal(t, 2.0, weights.Toxicity)
	assert.Equal(t, 0.1, weights.Solubility)
	assert.Equal(t, 1.0, weights.Druglikeness)

	var got jsonOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "1abc", got.Protein)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Shown)
	require.Len(t, got.Compounds, 1)
	assert.Equal(t, "Low tox", got.Compounds[0].Name)
	assert.Equal(t, "toxicity weighted up", got.Explanation)
}

func TestRunOptimize_Table(t *testing.T) {
	srv := backend(t, optimizeResponse, nil)
	opts := &options{protein: "1ABC", sortBy: "likeliness-desc", maxToxicity: 10}

	var out bytes.Buffer
	require.NoError(t, runOptimize(context.Background(), testConfig(srv.URL), opts, &out, io.Discard, zap.NewNop()))

	text := out.String()
	assert.Contains(t, text, "Optimized Compounds for 1ABC")
	assert.Contains(t, text, "High tox")
	assert.Contains(t, text, "Found 2 optimized compounds for your target.")
	assert.Contains(t, text, "toxicity weighted up")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("High tox")), bytes.Index(out.Bytes(), []byte("Low tox")))
}

func TestRunOptimize_Malformed(t *testing.T) {
	srv := backend(t, `{"optimized_compounds":"not valid json["}`, nil)
	opts := &options{protein: "1ABC", sortBy: "likeliness-desc", maxToxicity: 10}

	var out, errOut bytes.Buffer
	err := runOptimize(context.Background(), testConfig(srv.URL), opts, &out, &errOut, zap.NewNop())
	assert.ErrorIs(t, err, errMalformed)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "warning:")
}

func TestOptimizeCmd_WarningsGoToErrWriter(t *testing.T) {
	srv := backend(t, `{"optimized_compounds":"[] []"}`, nil)
	t.Setenv("API_BASE_URL", srv.URL)

	var out, errOut bytes.Buffer
	cmd := newOptimizeCmd(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--protein", "1ABC"})

	assert.Error(t, cmd.Execute())
	assert.NotContains(t, out.String(), "warning:")
	assert.Contains(t, errOut.String(), "warning:")
}

func TestTruncate_KeepsRunesIntact(t *testing.T) {
	s := strings.Repeat("α", 40)
	got := truncate(s, 30)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 30, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "Aspirin", truncate("Aspirin", 30))
}

func TestRunOptimize_InvalidInput(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cases := map[string]*options{
		"empty protein": {protein: " ", sortBy: "likeliness-desc"},
		"bad weight":    {protein: "1ABC", sortBy: "likeliness-desc", weights: []string{"toxicity"}},
		"out of range":  {protein: "1ABC", sortBy: "likeliness-desc", weights: []string{"toxicity=3"}},
		"bad sort":      {protein: "1ABC", sortBy: "weight-desc"},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			err := runOptimize(context.Background(), cfg, opts, io.Discard, io.Discard, zap.NewNop())
			assert.ErrorIs(t, err, services.ErrInvalidInput)
		})
	}
}

func TestParseWeights_Defaults(t *testing.T) {
	w, err := parseWeights(nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultWeights(), w)
}
