package ipc

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net"
	"strings"
	"testing"
)

func TestEnvelopeFraming(t *testing.T) {
	var buf bytes.Buffer
	env, err := NewEnvelope(TypeAction, NewCall(70, NotQueued, []int{42, 17}))
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := WriteEnvelope(&buf, env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	// The 4-byte little-endian prefix must equal the JSON payload length.
	prefix := binary.LittleEndian.Uint32(buf.Bytes()[:4])
	if int(prefix) != buf.Len()-4 {
		t.Fatalf("length prefix = %d, payload = %d", prefix, buf.Len()-4)
	}

	got, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if got.Type != TypeAction {
		t.Errorf("type = %q, want %q", got.Type, TypeAction)
	}
	var call FunctionCall
	if err := json.Unmarshal(got.Data, &call); err != nil {
		t.Fatalf("unmarshal call: %v", err)
	}
	if call.Function != 70 || len(call.Arguments) != 2 || call.Arguments[1][0] != 42 {
		t.Errorf("call = %+v, want build at (42,17)", call)
	}
}

func TestReadEnvelopeRejectsBadLength(t *testing.T) {
	for _, length := range []uint32{0, maxMessageLength + 1} {
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, length)
		if _, err := ReadEnvelope(&buf); err == nil {
			t.Errorf("length %d: expected error", length)
		}
	}
}

func TestReadEnvelopeRejectsMissingType(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"data":{}}`)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	_, err := ReadEnvelope(&buf)
	if err == nil || !strings.Contains(err.Error(), "missing type") {
		t.Errorf("expected missing type error, got %v", err)
	}
}

func TestNoOpCallEncodesEmptyArguments(t *testing.T) {
	raw, err := json.Marshal(NewCall(0))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"function":0,"arguments":[]}` {
		t.Errorf("no-op encoded as %s", raw)
	}
}

func TestConnectionDispatchesAndReplies(t *testing.T) {
	server, client := net.Pipe()
	conn := NewConnection(NewFramedTransport(server), nil)
	conn.RegisterHandler(TypeHello, func(env Envelope) (*Envelope, error) {
		ack, err := NewEnvelope(TypeAck, AckMessage{Status: "ok"})
		return &ack, err
	})

	done := make(chan struct{})
	go func() {
		conn.ReadLoop()
		close(done)
	}()

	// Unknown types are skipped without a reply; hello is acked.
	unknown, _ := NewEnvelope("bogus", map[string]int{})
	if err := WriteEnvelope(client, unknown); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	hello, _ := NewEnvelope(TypeHello, HelloMessage{Player: "saltbot"})
	if err := WriteEnvelope(client, hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	resp, err := ReadEnvelope(client)
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if resp.Type != TypeAck {
		t.Errorf("reply type = %q, want ack", resp.Type)
	}

	client.Close()
	<-done
}
