package lsp

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestClientChannel_Log(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	conn := &fakeConn{}
	channel := NewClientChannel(context.Background(), conn, zap.New(core))

	channel.Log(protocol.MessageTypeError, "completion failed: boom")

	require.Len(t, conn.notes, 1)
	assert.Equal(t, MethodLogMessage, conn.notes[0].method)
	params, ok := conn.notes[0].params.(*protocol.LogMessageParams)
	require.True(t, ok)
	assert.Equal(t, protocol.MessageTypeError, params.Type)
	assert.Equal(t, "completion failed: boom", params.Message)

	entries := logs.FilterMessage("completion failed: boom").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestClientChannel_ConcurrentMessagesStayWhole(t *testing.T) {
	conn := &fakeConn{}
	channel := NewClientChannel(context.Background(), conn, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			channel.Log(protocol.MessageTypeInfo, fmt.Sprintf("message %d", i))
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, note := range conn.notes {
		seen[note.params.(*protocol.LogMessageParams).Message] = true
	}
	assert.Len(t, seen, 50)
}

func TestClientChannel_PublishDiagnostics(t *testing.T) {
	conn := &fakeConn{}
	channel := NewClientChannel(context.Background(), conn, nil)

	channel.PublishDiagnostics(testURI, 3, []protocol.Diagnostic{})

	require.Len(t, conn.notes, 1)
	params, ok := conn.notes[0].params.(*publishDiagnosticsParams)
	require.True(t, ok)
	assert.Equal(t, protocol.DocumentURI(testURI), params.URI)
	assert.Equal(t, int32(3), params.Version)
	assert.NotNil(t, params.Diagnostics)
}

func TestLoggerChannel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	channel := NewLoggerChannel(zap.New(core))

	channel.Log(protocol.MessageTypeWarning, "w")
	channel.Log(protocol.MessageTypeLog, "l")

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, zapcore.WarnLevel, all[0].Level)
	assert.Equal(t, zapcore.DebugLevel, all[1].Level)
}

func TestSeverityName(t *testing.T) {
	assert.Equal(t, "error", SeverityName(protocol.MessageTypeError))
	assert.Equal(t, "warning", SeverityName(protocol.MessageTypeWarning))
	assert.Equal(t, "info", SeverityName(protocol.MessageTypeInfo))
	assert.Equal(t, "log", SeverityName(protocol.MessageTypeLog))
}
