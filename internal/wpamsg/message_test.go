package wpamsg

import (
	"reflect"
	"testing"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	cases := []Message{
		NewRequest("ATTACH"),
		NewRequest("SET", "wifi_display", 1),
		NewRequest("WFD_SUBELEM_SET", 0, "000600101C440032"),
		NewRequest("P2P_FIND", 30),
		NewRequest("P2P_STOP_FIND"),
		NewRequest("P2P_CONNECT", "4e:74:03:70:e2:c1", "pbc"),
		NewRequest("P2P_CANCEL"),
		NewRequest("P2P_GROUP_REMOVE", "p2p0"),
	}

	for _, want := range cases {
		got, err := Parse(want.Serialize())
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", want.Serialize(), err)
		}
		if got.Kind != want.Kind || got.Name != want.Name || !reflect.DeepEqual(got.Args, want.Args) {
			t.Errorf("round-trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestParseEvent(t *testing.T) {
	line := []byte(`<3>P2P-DEVICE-FOUND 4e:74:03:70:e2:c1 p2p_dev_addr=4e:74:03:70:e2:c1 name='Aquaris M10' config_methods=0x188 wfd_dev_info=0x00111c440032`)
	m, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !m.IsEvent() {
		t.Fatalf("expected event, got kind %v", m.Kind)
	}
	if m.Name != "P2P-DEVICE-FOUND" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Attrs["p2p_dev_addr"] != "4e:74:03:70:e2:c1" {
		t.Errorf("p2p_dev_addr = %q", m.Attrs["p2p_dev_addr"])
	}
	if m.Attrs["name"] != "Aquaris M10" {
		t.Errorf("name = %q", m.Attrs["name"])
	}
	if m.Attrs["wfd_dev_info"] != "0x00111c440032" {
		t.Errorf("wfd_dev_info = %q", m.Attrs["wfd_dev_info"])
	}
}

func TestParseGroupStartedWithDoubleQuotes(t *testing.T) {
	line := []byte(`<3>P2P-GROUP-STARTED p2p0 GO ssid="DIRECT-hB" freq=2412 passphrase="x" go_dev_addr=4e:74:03:64:95:a7`)
	m, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var iface, role string
	if err := m.Read().Positional(&iface).Positional(&role).Err(); err != nil {
		t.Fatalf("positional read failed: %v", err)
	}
	if iface != "p2p0" || role != "GO" {
		t.Errorf("iface=%q role=%q", iface, role)
	}
	if m.Attrs["ssid"] != "DIRECT-hB" {
		t.Errorf("ssid = %q", m.Attrs["ssid"])
	}
}

func TestParseGroupRemovedReason(t *testing.T) {
	line := []byte(`<3>P2P-GROUP-REMOVED p2p0 GO reason=FORMATION_FAILED`)
	m, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var reason string
	if err := m.Read().Skip().Skip().Named("reason", &reason).Err(); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if reason != "FORMATION_FAILED" {
		t.Errorf("reason = %q", reason)
	}
}

func TestParseReply(t *testing.T) {
	m, err := Parse([]byte("OK\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !m.IsOK() || m.IsEvent() {
		t.Errorf("expected OK line, got %+v", m)
	}

	m, err = Parse([]byte("FAIL"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !m.IsFail() {
		t.Errorf("expected FAIL line, got %+v", m)
	}
}

func TestParseEmptyIsMalformed(t *testing.T) {
	if _, err := Parse([]byte("")); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := Parse([]byte("   \n")); err == nil {
		t.Fatal("expected error for whitespace-only input")
	}
}

func TestParseUnterminatedQuote(t *testing.T) {
	if _, err := Parse([]byte(`P2P-DEVICE-FOUND name='Aquaris`)); err == nil {
		t.Fatal("expected error for unterminated quote")
	}
}

func TestReaderMissingField(t *testing.T) {
	m := NewRequest("P2P_CONNECT", "aa:bb:cc:dd:ee:ff")
	var s string
	err := m.Read().Positional(&s).Positional(&s).Err()
	if err == nil {
		t.Fatal("expected ErrMissingField")
	}
}
