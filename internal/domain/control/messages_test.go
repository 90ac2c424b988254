package control

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPeerInfoPreservesCidersFieldName(t *testing.T) {
	p := PeerInfo{Identity: "a", PrivateIP: "10.0.0.2", Cidrs: []string{"192.168.0.0/24"}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"ciders"`) {
		t.Fatalf("expected wire field %q, got %s", "ciders", data)
	}
	if strings.Contains(string(data), `"cidrs"`) {
		t.Fatalf("correctly-spelled field must not appear on the wire: %s", data)
	}

	var decoded PeerInfo
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Cidrs) != 1 || decoded.Cidrs[0] != "192.168.0.0/24" {
		t.Fatalf("round trip lost Cidrs: %+v", decoded)
	}
}

func TestPeerUpdatePreservesCidersFieldName(t *testing.T) {
	u := PeerUpdate{Identity: "b", PrivateIP: "10.0.0.3", Cidrs: []string{"10.1.0.0/16"}}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"ciders"`) {
		t.Fatalf("expected wire field %q, got %s", "ciders", data)
	}
}

func TestHandshakeReplyOmitsEmptyOptionalFields(t *testing.T) {
	r := HandshakeReply{Ok: false, Reason: "unknown identity"}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	for _, absent := range []string{"private_ip", "mask", "gateway", "others"} {
		if strings.Contains(string(data), `"`+absent+`"`) {
			t.Fatalf("expected %q omitted from rejection reply, got %s", absent, data)
		}
	}
}
