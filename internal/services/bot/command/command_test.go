package command

import "testing"

func TestRegisterRejectsEmptyVerb(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Verb: "  "}); err == nil {
		t.Fatal("expected error for empty verb")
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Verb: VerbHelp}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.Register(Definition{Verb: VerbHelp}); err == nil {
		t.Fatal("expected error for duplicate verb")
	}
}

func TestLookupTrimsToken(t *testing.T) {
	registry := DefaultRegistry()
	def, ok := registry.Lookup(" give ")
	if !ok {
		t.Fatal("expected give to resolve")
	}
	if def.Verb != VerbGive {
		t.Fatalf("expected give, got %s", def.Verb)
	}
}

func TestLookupUnknownVerb(t *testing.T) {
	registry := DefaultRegistry()
	if _, ok := registry.Lookup("steal"); ok {
		t.Fatal("expected unknown verb to miss")
	}
}

func TestDefaultRegistryPrivilegeSet(t *testing.T) {
	registry := DefaultRegistry()

	privileged := map[Verb]bool{
		VerbGive:             true,
		VerbRemove:           true,
		VerbPromote:          true,
		VerbDemote:           true,
		VerbClearTeams:       true,
		VerbClearBits:        true,
		VerbSaveBitHistory:   true,
		VerbDeleteBitHistory: true,
	}
	for _, verb := range registry.Verbs() {
		def, ok := registry.Lookup(string(verb))
		if !ok {
			t.Fatalf("verb %s missing from registry", verb)
		}
		if def.Privileged != privileged[verb] {
			t.Fatalf("verb %s: expected privileged=%v", verb, privileged[verb])
		}
	}
	if len(registry.Verbs()) != 13 {
		t.Fatalf("expected 13 verbs, got %d", len(registry.Verbs()))
	}
}

func TestDefaultRegistryArity(t *testing.T) {
	registry := DefaultRegistry()
	tests := map[Verb]int{
		VerbGive:             2,
		VerbRemove:           2,
		VerbPromote:          1,
		VerbDemote:           1,
		VerbSaveBitHistory:   1,
		VerbDeleteBitHistory: 1,
		VerbGetBits:          0,
		VerbLeaderboard:      0,
		VerbHelp:             0,
	}
	for verb, want := range tests {
		def, _ := registry.Lookup(string(verb))
		if def.MinArgs != want {
			t.Fatalf("verb %s: expected min args %d, got %d", verb, want, def.MinArgs)
		}
	}
}
