package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchbox/lunchbox-cli/internal/config"
	"github.com/lunchbox/lunchbox-cli/internal/output"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"2", 2, false},
		{" 4 ", 4, false},
		{"$", 1, false},
		{"$$$", 3, false},
		{"0", 0, true},
		{"5", 0, true},
		{"$$$$$", 0, true},
		{"cheap", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePrice(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanIDs(t *testing.T) {
	ids, err := cleanIDs([]string{" a ", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = cleanIDs([]string{"https://www.yelp.com/biz/ichiran-berlin?osq=ramen"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ichiran-berlin"}, ids)

	_, err = cleanIDs([]string{"a", "  "})
	require.Error(t, err)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "1 favourite", pluralize(1, "favourite"))
	assert.Equal(t, "0 favourites", pluralize(0, "favourite"))
	assert.Equal(t, "3 favourites", pluralize(3, "favourite"))
}

func TestReadKey(t *testing.T) {
	key, err := readKey(strings.NewReader("  abc123  \nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)

	key, err = readKey(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", key)
}

func TestQueryContextOmitsDefaults(t *testing.T) {
	q := restaurant.Query{Sort: restaurant.SortBestMatch}
	ctx := queryContext(q)
	assert.Equal(t, "best_match", ctx["sort"])
	assert.NotContains(t, ctx, "term")
	assert.NotContains(t, ctx, "open_now")
	assert.NotContains(t, ctx, "favourites")

	q.Term = "ramen"
	q.OpenNow = true
	q.MaxPrice = 2
	q.FavouritesOnly = true
	ctx = queryContext(q)
	assert.Equal(t, "ramen", ctx["term"])
	assert.Equal(t, true, ctx["open_now"])
	assert.Equal(t, 2, ctx["max_price"])
	assert.Equal(t, true, ctx["favourites"])
}

func TestTermArg(t *testing.T) {
	assert.Equal(t, "", termArg(""))
	assert.Equal(t, `"dim sum" `, termArg("dim sum"))
}

func TestConfigFilePath(t *testing.T) {
	cfg := &config.Config{ConfigDir: t.TempDir()}

	path, err := configFilePath(cfg, "sort", false)
	require.NoError(t, err)
	assert.Equal(t, config.LocalConfigPath(), path)

	path, err = configFilePath(cfg, "base_url", true)
	require.NoError(t, err)
	assert.Equal(t, config.GlobalConfigPath(cfg.ConfigDir), path)

	_, err = configFilePath(cfg, "base_url", false)
	require.Error(t, err)
	assert.Contains(t, output.AsError(err).Hint, "--global")
}
