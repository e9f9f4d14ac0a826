package budget

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	r := Summarize(Sizes{
		System:         20,
		Tools:          10,
		Messages:       60,
		ReservedOutput: 10,
	}, []Action{
		{Op: ActionDropped, Category: CategoryMemory},
		{Op: ActionReduced, Category: CategoryTools, NewSize: 10, Items: 1},
		{Op: ActionTrimmed, Category: CategoryMessages, NewSize: 60, Items: 3},
	})
	r.Ceiling = 100
	return r
}

func TestSummarize(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 100, r.Total)
	assert.Len(t, r.Actions, 3)
	assert.False(t, r.OverCeiling)
}

func TestReport_String(t *testing.T) {
	s := sampleReport().String()
	assert.Contains(t, s, "total=100/100")
	assert.Contains(t, s, "memory dropped")
	assert.Contains(t, s, "tools reduced to 1")
	assert.Contains(t, s, "messages trimmed to 3")
	assert.NotContains(t, s, "OVER CEILING")

	over := sampleReport()
	over.OverCeiling = true
	assert.Contains(t, over.String(), "OVER CEILING")
}

func TestReport_ZerologObject(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	log.Info().Object("budget", sampleReport()).Msg("chat turn")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	b, ok := entry["budget"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(100), b["total"])
	assert.Equal(t, float64(60), b["messages"])
	actions, ok := b["actions"].([]any)
	require.True(t, ok)
	assert.Len(t, actions, 3)
	assert.Equal(t, "memory dropped", actions[0])
}
