/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roadnet/roadkit/log"
)

func TestRecorder(t *testing.T) {
	recorder := NewRecorder()
	logger := recorder.With(log.String("component", "queue"))

	logger.Info("item dispatched", log.Int("in_flight", 3))
	logger.WithLevel(log.LevelWarn).Info("dropped by level")
	logger.Warnf("item %d failed", 7)

	entries := recorder.Entries()
	require.Len(t, entries, 2)

	entry, found := recorder.FindEntry("item dispatched")
	require.True(t, found)
	require.Equal(t, log.LevelInfo, entry.Level)
	field, found := entry.FindField("in_flight")
	require.True(t, found)
	require.Equal(t, int64(3), field.Int)
	field, found = entry.FindField("component")
	require.True(t, found)
	require.Equal(t, "queue", string(field.Bytes))

	warnings := recorder.FindAllEntries(func(e RecordedEntry) bool { return e.Level == log.LevelWarn })
	require.Len(t, warnings, 1)
	require.Equal(t, "item 7 failed", warnings[0].Text)

	recorder.Reset()
	require.Empty(t, recorder.Entries())
}
