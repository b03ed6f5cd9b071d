package settings

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDefaultsFullyPopulated(t *testing.T) {
	s := Defaults()

	if s.Prompt == "" {
		t.Error("default prompt is empty")
	}
	if s.MatchMode != MatchExact {
		t.Errorf("default matchMode = %q, want exact", s.MatchMode)
	}
	if !s.LocalEnabled {
		t.Error("localEnabled should default to true")
	}
	if s.SourceIndicator {
		t.Error("sourceIndicator should default to false")
	}
	if s.CooldownSeconds != 10 {
		t.Errorf("cooldownSeconds = %d, want 10", s.CooldownSeconds)
	}
	if s.LocalResponses.Len() == 0 {
		t.Error("default localResponses is empty")
	}
	if len(s.Compiled()) != s.LocalResponses.Len() {
		t.Error("defaults not compiled")
	}
}

func TestPartialRecordMergesOverDefaults(t *testing.T) {
	s := Defaults()
	if err := json.Unmarshal([]byte(`{"cooldownSeconds": 5}`), s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := Defaults()
	want.CooldownSeconds = 5

	if s.CooldownSeconds != 5 {
		t.Errorf("cooldownSeconds = %d, want 5", s.CooldownSeconds)
	}
	if s.Prompt != want.Prompt || s.MatchMode != want.MatchMode ||
		s.WelcomeMessage != want.WelcomeMessage || s.LocalEnabled != want.LocalEnabled ||
		s.SourceIndicator != want.SourceIndicator {
		t.Error("fields outside the partial record changed")
	}
	if !reflect.DeepEqual(s.LocalResponses.Keys(), want.LocalResponses.Keys()) {
		t.Errorf("localResponses keys = %v, want %v", s.LocalResponses.Keys(), want.LocalResponses.Keys())
	}
}

func TestResponseMapOrderAndValues(t *testing.T) {
	raw := `{"menu": "See options", "hola": ["Hi", "Hello"], "adios": ["Bye"]}`

	var m ResponseMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	wantKeys := []string{"menu", "hola", "adios"}
	if !reflect.DeepEqual(m.Keys(), wantKeys) {
		t.Errorf("keys = %v, want %v", m.Keys(), wantKeys)
	}

	if got, _ := m.Get("menu"); !reflect.DeepEqual([]string(got), []string{"See options"}) {
		t.Errorf("bare string value = %v, want one-element list", got)
	}
	if got, _ := m.Get("hola"); len(got) != 2 {
		t.Errorf("array value length = %d, want 2", len(got))
	}

	// Round trip keeps order
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ResponseMap
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("round trip unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Keys(), wantKeys) {
		t.Errorf("round trip keys = %v, want %v", back.Keys(), wantKeys)
	}
}

func TestCompilePatternKeys(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		input   string
		matches bool
		wantErr bool
	}{
		{"alternation", "/hola|buenos/i", "Buenos días", true, false},
		{"default case-insensitive", "/HOLA/", "hola", true, false},
		{"no match", "/adios/i", "hola", false, false},
		{"explicit i flag", "/menu/i", "el MENU por favor", true, false},
		{"invalid pattern", "/[unclosed/i", "", false, true},
		{"unsupported flag", "/hola/x", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := compilePatternKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("compilePatternKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := re.MatchString(tt.input); got != tt.matches {
				t.Errorf("pattern %q matching %q = %v, want %v", tt.key, tt.input, got, tt.matches)
			}
		})
	}
}

func TestPatchValidate(t *testing.T) {
	badMode := MatchMode("fuzzy")
	goodMode := MatchExpert
	negative := -1
	zero := 0

	var badResponses ResponseMap
	badResponses.Set("/[broken/", []string{"x"})
	var emptyReplies ResponseMap
	emptyReplies.Set("hola", []string{})

	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"empty patch", Patch{}, false},
		{"valid mode", Patch{MatchMode: &goodMode}, false},
		{"unknown mode", Patch{MatchMode: &badMode}, true},
		{"negative cooldown", Patch{CooldownSeconds: &negative}, true},
		{"zero cooldown ok", Patch{CooldownSeconds: &zero}, false},
		{"broken pattern key", Patch{LocalResponses: &badResponses}, true},
		{"empty reply list", Patch{LocalResponses: &emptyReplies}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPatchApplyRecompiles(t *testing.T) {
	s := Defaults()

	var responses ResponseMap
	responses.Set("/hola|buenos/i", []string{"¡Hola!"})
	responses.Set("menu", []string{"See options"})

	mode := MatchExpert
	p := Patch{LocalResponses: &responses, MatchMode: &mode}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := p.Apply(s); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	compiled := s.Compiled()
	if len(compiled) != 2 {
		t.Fatalf("compiled entries = %d, want 2", len(compiled))
	}
	if compiled[0].Pattern == nil {
		t.Error("pattern key did not compile to a regex variant")
	}
	if compiled[1].Pattern != nil {
		t.Error("literal key compiled to a regex variant")
	}
	if len(compiled[1].Tokens) == 0 {
		t.Error("literal key has no tokens")
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := NewStore(t.TempDir())

	// Missing record yields defaults
	got := st.Load("s1")
	if got.CooldownSeconds != 10 {
		t.Errorf("missing record cooldown = %d, want default 10", got.CooldownSeconds)
	}

	s := Defaults()
	s.CooldownSeconds = 5
	s.SourceIndicator = true
	if err := st.Save("s1", s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got = st.Load("s1")
	if got.CooldownSeconds != 5 {
		t.Errorf("cooldownSeconds = %d, want 5", got.CooldownSeconds)
	}
	if !got.SourceIndicator {
		t.Error("sourceIndicator not persisted")
	}
	if got.Prompt != DefaultPrompt {
		t.Error("untouched field deviates from defaults after reload")
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("¿Cómo está, el menú?")
	if len(got) == 0 {
		t.Fatal("no tokens")
	}
	for _, tok := range got {
		if tok == "" {
			t.Error("empty token survived")
		}
	}

	if got := Tokenize("hola  mundo"); !reflect.DeepEqual(got, []string{"hola", "mundo"}) {
		t.Errorf("Tokenize = %v, want [hola mundo]", got)
	}
}
