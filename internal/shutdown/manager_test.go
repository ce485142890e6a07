package shutdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_ShutdownCancelsContext(t *testing.T) {
	m := NewManager(context.Background(), nil)
	m.Listen()

	assert.NoError(t, m.Context().Err())

	m.Shutdown()
	m.Shutdown()

	select {
	case <-m.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestManager_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m := NewManager(parent, nil)
	cancel()

	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
	m.Shutdown()
}
