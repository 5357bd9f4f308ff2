package docker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
)

func TestDecodeBuildOutput_Success(t *testing.T) {
	stream := `{"stream":"Step 1/5 : FROM python:3.9-slim\n"}
{"status":"Pulling fs layer","id":"a1b2"}
{"stream":" ---> 0123456789ab\n"}
{"aux":{"ID":"sha256:deadbeef"}}
{"stream":"Successfully tagged bot_1:latest\n"}
`
	var out strings.Builder
	require.NoError(t, decodeBuildOutput(strings.NewReader(stream), &out))
	assert.Equal(t,
		"Step 1/5 : FROM python:3.9-slim\na1b2: Pulling fs layer\n ---> 0123456789ab\nSuccessfully tagged bot_1:latest\n",
		out.String())
}

func TestDecodeBuildOutput_ErrorCarriesExitCode(t *testing.T) {
	stream := `{"stream":"Step 4/5 : RUN pip install -r requirements.txt\n"}
{"errorDetail":{"message":"The command '/bin/sh -c pip install -r requirements.txt' returned a non-zero code: 2"},"error":"The command '/bin/sh -c pip install -r requirements.txt' returned a non-zero code: 2"}
{"stream":"never reached\n"}
`
	var out strings.Builder
	err := decodeBuildOutput(strings.NewReader(stream), &out)
	require.Error(t, err)
	assert.Equal(t, 2, domain.ExitCode(err))
	assert.Contains(t, out.String(), "returned a non-zero code: 2")
	assert.NotContains(t, out.String(), "never reached")
}

func TestDecodeBuildOutput_Truncated(t *testing.T) {
	err := decodeBuildOutput(strings.NewReader(`{"stream":"partial`), &strings.Builder{})
	require.Error(t, err)
	assert.Equal(t, 1, domain.ExitCode(err))
}

func TestBuildExitCode(t *testing.T) {
	assert.Equal(t, 7, buildExitCode(7, "whatever"))
	assert.Equal(t, 127, buildExitCode(0, "returned a non-zero code: 127"))
	assert.Equal(t, 1, buildExitCode(0, "pull access denied"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortID("0123456789abcdef"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestSinceParam(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 250_000_000, time.UTC)
	assert.Equal(t, "1714564800.250000000", sinceParam(at))
	assert.Equal(t, "1714564800.000000007", sinceParam(at.Truncate(time.Second).Add(7)))
	assert.Empty(t, sinceParam(time.Time{}))
}
