package core

import (
	"context"
	"testing"
)

var _ InboundHandler = staticHandler{}

type staticHandler struct {
	NopVerification
	key  string
	text string
}

func (h staticHandler) Provider() string { return h.key }

func (h staticHandler) ParseInbound(_ context.Context, _ Headers, body []byte) (InboundMessage, error) {
	return InboundMessage{Provider: h.key, Text: h.text, Raw: body}, nil
}

func TestRegistry_RegisterReturnsNewSnapshot(t *testing.T) {
	base := NewRegistry()
	first := base.Register(staticHandler{key: "plivo", text: "v1"})

	if base.Len() != 0 {
		t.Fatalf("expected base snapshot unchanged, got %d handlers", base.Len())
	}
	if first.Len() != 1 {
		t.Fatalf("expected one handler after register, got %d", first.Len())
	}
	if _, ok := base.Lookup("plivo"); ok {
		t.Fatalf("expected base snapshot to stay empty")
	}
	if _, ok := first.Lookup("plivo"); !ok {
		t.Fatalf("expected plivo handler in new snapshot")
	}
}

func TestRegistry_ReplaceKeepsOldSnapshotIntact(t *testing.T) {
	first := NewRegistry().Register(staticHandler{key: "plivo", text: "old"})
	second := first.Register(staticHandler{key: "plivo", text: "new"})

	oldHandler, ok := first.Lookup("plivo")
	if !ok {
		t.Fatalf("expected old snapshot to keep its handler")
	}
	if oldHandler.(staticHandler).text != "old" {
		t.Fatalf("expected old snapshot to resolve the old handler, got %q", oldHandler.(staticHandler).text)
	}

	newHandler, ok := second.Lookup("plivo")
	if !ok {
		t.Fatalf("expected replacement handler in new snapshot")
	}
	if newHandler.(staticHandler).text != "new" {
		t.Fatalf("expected new snapshot to resolve the replacement, got %q", newHandler.(staticHandler).text)
	}
	if second.Len() != 1 {
		t.Fatalf("expected replacement to keep a single entry, got %d", second.Len())
	}
}

func TestRegistry_LookupNormalizesProviderKey(t *testing.T) {
	registry := NewRegistry().Register(staticHandler{key: "  Twilio "})

	if _, ok := registry.Lookup("twilio"); !ok {
		t.Fatalf("expected lowercase lookup to resolve")
	}
	if _, ok := registry.Lookup(" TWILIO "); !ok {
		t.Fatalf("expected padded uppercase lookup to resolve")
	}
	if providers := registry.Providers(); len(providers) != 1 || providers[0] != "twilio" {
		t.Fatalf("expected normalized provider listing, got %#v", providers)
	}
}

func TestRegistry_SkipsNilAndEmptyKeyHandlers(t *testing.T) {
	base := NewRegistry()
	got := base.Register(nil, staticHandler{key: "   "})

	if got.Len() != 0 {
		t.Fatalf("expected skipped handlers to register nothing, got %d", got.Len())
	}
	if got != base {
		t.Fatalf("expected unchanged receiver when every handler is skipped")
	}
}

func TestRegistry_NilReceiverIsUsable(t *testing.T) {
	var registry *Registry

	if registry.Len() != 0 {
		t.Fatalf("expected nil registry to report zero handlers")
	}
	if _, ok := registry.Lookup("plivo"); ok {
		t.Fatalf("expected nil registry lookup to miss")
	}
	if providers := registry.Providers(); providers != nil {
		t.Fatalf("expected nil provider listing, got %#v", providers)
	}

	populated := registry.Register(staticHandler{key: "plivo"})
	if populated.Len() != 1 {
		t.Fatalf("expected register on nil receiver to build a snapshot, got %d", populated.Len())
	}
}

func TestRegistry_ProvidersSorted(t *testing.T) {
	registry := NewRegistry().Register(
		staticHandler{key: "twilio"},
		staticHandler{key: "aws_sns"},
		staticHandler{key: "plivo"},
	)

	providers := registry.Providers()
	expected := []string{"aws_sns", "plivo", "twilio"}
	if len(providers) != len(expected) {
		t.Fatalf("expected %d providers, got %#v", len(expected), providers)
	}
	for index, name := range expected {
		if providers[index] != name {
			t.Fatalf("expected providers %#v, got %#v", expected, providers)
		}
	}
}
