package identity

import (
	"strings"
	"sync"
	"testing"

	stderrors "errors"

	"github.com/scripthost/script-engine/errors"
)

func TestNewPrefixUnique(t *testing.T) {
	const n = 64
	var wg sync.WaitGroup
	prefixes := make([]string, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prefixes[i] = NewPrefix()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, p := range prefixes {
		if !strings.HasPrefix(p, Marker) {
			t.Errorf("prefix %q missing marker", p)
		}
		if seen[p] {
			t.Fatalf("duplicate prefix %q", p)
		}
		seen[p] = true
	}
}

func TestAllocatorNext(t *testing.T) {
	a := NewAllocator()

	id, asm, typ := a.Next()
	if id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}
	if asm != a.Prefix()+"#1" {
		t.Errorf("assembly name = %q", asm)
	}
	if typ != "Submission#1" {
		t.Errorf("type name = %q", typ)
	}

	id2, asm2, _ := a.Next()
	if id2 != 2 || asm2 == asm {
		t.Errorf("second id = %d, name %q", id2, asm2)
	}
}

func TestAllocatorNextConcurrent(t *testing.T) {
	a := NewAllocator()
	const n = 100

	var wg sync.WaitGroup
	names := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, names[i], _ = a.Next()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, name := range names {
		if seen[name] {
			t.Fatalf("duplicate assembly name %q", name)
		}
		seen[name] = true
	}
}

func TestOwns(t *testing.T) {
	a := NewAllocator()
	b := NewAllocator()

	_, asm, _ := a.Next()

	tests := []struct {
		name string
		want bool
	}{
		{asm, true},
		{a.ContainerIdentity(true), true},
		{a.ContainerIdentity(false), true},
		{b.ContainerIdentity(false), false},
		{"mylib", false},
		{"mylib@1.2.0", false},
		{Marker + "unrelated", false},
	}

	for _, tt := range tests {
		if got := a.Owns(tt.name); got != tt.want {
			t.Errorf("Owns(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestContainerIdentity(t *testing.T) {
	a := NewAllocator()

	cd := a.ContainerIdentity(true)
	ud := a.ContainerIdentity(false)

	if !strings.HasSuffix(cd, ReclaimableSuffix) {
		t.Errorf("reclaimable identity = %q", cd)
	}
	if !strings.HasSuffix(ud, PersistentSuffix) {
		t.Errorf("persistent identity = %q", ud)
	}
	if cd == ud {
		t.Error("container identities must differ")
	}
}

func TestVerify(t *testing.T) {
	a := NewAllocator()
	_, asm, _ := a.Next()

	for _, name := range []string{asm, a.ContainerIdentity(true), a.ContainerIdentity(false), "mylib", "other$frag-x"} {
		if err := a.Verify(name); err != nil {
			t.Errorf("Verify(%q) = %v, want nil", name, err)
		}
	}

	// A name inside the prefix that is not a generated form must fail fast.
	bad := a.Prefix() + "#notanumber"
	err := a.Verify(bad)
	if err == nil {
		t.Fatalf("Verify(%q) = nil, want collision", bad)
	}
	if !stderrors.Is(err, errors.Collision(errors.PhaseNaming, "")) {
		t.Errorf("Verify(%q) = %v, want collision kind", bad, err)
	}

	if err := a.Verify(a.Prefix() + "tail"); err == nil {
		t.Error("Verify of prefix with junk tail should fail")
	}
}

func TestSubmissionID(t *testing.T) {
	a := NewAllocator()
	_, asm, _ := a.Next()
	_, asm2, _ := a.Next()

	if id, ok := a.SubmissionID(asm); !ok || id != 1 {
		t.Errorf("SubmissionID(%q) = %d, %v", asm, id, ok)
	}
	if id, ok := a.SubmissionID(asm2); !ok || id != 2 {
		t.Errorf("SubmissionID(%q) = %d, %v", asm2, id, ok)
	}
	if _, ok := a.SubmissionID(a.ContainerIdentity(false)); ok {
		t.Error("container identity is not a submission name")
	}
	if _, ok := a.SubmissionID("mylib"); ok {
		t.Error("external name is not a submission name")
	}
}

func TestSimpleName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"mylib", "mylib"},
		{"mylib@1.2.0", "mylib"},
		{"mylib@1.2.0/sub", "mylib"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SimpleName(tt.in); got != tt.want {
			t.Errorf("SimpleName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
