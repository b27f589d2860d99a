package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tables, err := Load()
	require.NoError(t, err)
	require.NotNil(t, tables)

	assert.Contains(t, tables.Synonyms("audio"), "speaker")
	assert.Nil(t, tables.Synonyms("nonexistent-category"))
	assert.Contains(t, tables.Blacklist("ebike"), "power station")
	assert.Nil(t, tables.Blacklist("food"))
}

func TestPlatformMetadata(t *testing.T) {
	tables, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "¥", tables.Currency("makuake"))
	assert.Equal(t, "₩", tables.Currency("wadiz"))
	assert.Equal(t, "$", tables.Currency("unknown-platform"))

	assert.True(t, tables.IsEnglishPlatform("kickstarter"))
	assert.False(t, tables.IsEnglishPlatform("campfire"))
	assert.Equal(t, "korean", tables.Language("Wadiz"))
}
