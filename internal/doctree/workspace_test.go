package doctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_OpenClose(t *testing.T) {
	ws := NewWorkspace()

	var events []WorkspaceEvent
	unsubscribe := ws.Subscribe(func(ev WorkspaceEvent) { events = append(events, ev) })
	defer unsubscribe()

	b, err := ws.Open("b.kt", LangKotlin, sampleSpec("1"))
	require.NoError(t, err)
	a, err := ws.Open("a.kt", LangKotlin, sampleSpec("2"))
	require.NoError(t, err)

	_, err = ws.Open("a.kt", LangKotlin, sampleSpec("3"))
	assert.Error(t, err)

	docs := ws.Documents()
	require.Len(t, docs, 2)
	assert.Same(t, a, docs[0])
	assert.Same(t, b, docs[1])

	got, ok := ws.Get("b.kt")
	require.True(t, ok)
	assert.Same(t, b, got)

	ws.Close("b.kt")
	ws.Close("missing.kt")

	_, ok = ws.Get("b.kt")
	assert.False(t, ok)
	assert.True(t, b.Disposed())

	require.Len(t, events, 3)
	assert.Equal(t, DocumentOpened, events[0].Kind)
	assert.Equal(t, DocumentClosed, events[2].Kind)
	assert.Same(t, b, events[2].Document)
}
