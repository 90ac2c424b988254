package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestIncPrefixesMetricNames(t *testing.T) {
	c := NewCounters("client")
	c.Inc(FramesRx)

	var buf bytes.Buffer
	c.WritePrometheus(&buf)

	if !strings.Contains(buf.String(), "client_"+FramesRx) {
		t.Fatalf("expected prefixed metric name in output, got %s", buf.String())
	}
}

func TestIncWithEmptyPrefixLeavesNameUnchanged(t *testing.T) {
	c := NewCounters("")
	c.Inc(FramesTx)

	var buf bytes.Buffer
	c.WritePrometheus(&buf)

	if !strings.Contains(buf.String(), FramesTx) {
		t.Fatalf("expected unprefixed metric name in output, got %s", buf.String())
	}
	if strings.Contains(buf.String(), "_"+FramesTx) {
		t.Fatalf("expected no prefix separator with empty prefix, got %s", buf.String())
	}
}

func TestTwoCountersWithDifferentPrefixesDoNotCollide(t *testing.T) {
	client := NewCounters("client")
	server := NewCounters("server")
	client.Inc(FramesErr)
	server.Inc(FramesErr)

	var clientBuf, serverBuf bytes.Buffer
	client.WritePrometheus(&clientBuf)
	server.WritePrometheus(&serverBuf)

	if !strings.Contains(clientBuf.String(), "client_"+FramesErr) {
		t.Fatalf("expected client-prefixed metric, got %s", clientBuf.String())
	}
	if !strings.Contains(serverBuf.String(), "server_"+FramesErr) {
		t.Fatalf("expected server-prefixed metric, got %s", serverBuf.String())
	}
}
