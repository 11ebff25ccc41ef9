package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/reviewpulse/internal/api/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestParseArgs(t *testing.T) {
	owner := uuid.New()

	opts, err := parseArgs([]string{"-owner", owner.String(), "-name", " ci "})
	require.NoError(t, err)
	assert.Equal(t, owner, opts.ownerID)
	assert.Equal(t, "ci", opts.name)
	assert.Equal(t, []string{mw.ScopeIngest, mw.ScopeRead}, opts.scopes)
}

func TestParseArgs_Errors(t *testing.T) {
	owner := uuid.New().String()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing owner", []string{"-name", "x"}, "-owner"},
		{"nil owner", []string{"-owner", uuid.Nil.String(), "-name", "x"}, "-owner"},
		{"missing name", []string{"-owner", owner}, "-name"},
		{"unknown scope", []string{"-owner", owner, "-name", "x", "-scopes", "admin"}, "unknown scope"},
		{"empty scopes", []string{"-owner", owner, "-name", "x", "-scopes", " , "}, "at least one scope"},
		{"bad flag", []string{"-bogus"}, "bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScopes_Dedupes(t *testing.T) {
	got, err := parseScopes("read, read ,ingest")
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "ingest"}, got)
}

func TestNewAPIKey(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	opts := options{ownerID: uuid.New(), name: "ci", scopes: []string{"read"}}

	raw, key, err := newAPIKey(opts, now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "rp_"))
	assert.Len(t, raw, len("rp_")+32)
	assert.Equal(t, raw[:mw.KeyPrefixLen], key.KeyPrefix)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(raw)))
	assert.Equal(t, opts.ownerID, key.OwnerID)
	assert.Equal(t, now, key.CreatedAt)

	raw2, _, err := newAPIKey(opts, now)
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
}

func TestRun_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	var out bytes.Buffer
	err := run([]string{"-owner", uuid.New().String(), "-name", "x"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
	assert.Empty(t, out.String())
}
