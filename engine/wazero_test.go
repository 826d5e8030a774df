package engine

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	scriptengine "github.com/scripthost/script-engine"
	"github.com/scripthost/script-engine/errors"
)

// wasmConst42 is a minimal module exporting main: () -> i32 returning 42.
func wasmConst42() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic + version
		0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f, // type: () -> i32
		0x03, 0x02, 0x01, 0x00, // func section
		0x07, 0x08, 0x01, 0x04, 'm', 'a', 'i', 'n', 0x00, 0x00, // export "main"
		0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x2a, 0x0b, // body: i32.const 42
	}
}

// wasmAdd is a minimal module exporting add: (i32, i32) -> i32.
func wasmAdd() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f, // (i32,i32) -> i32
		0x03, 0x02, 0x01, 0x00,
		0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
		0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
	}
}

// recordSink is a minimal CodeSink for emit tests.
type recordSink struct {
	name string

	mu     sync.Mutex
	images [][]byte
}

func (s *recordSink) Name() string { return s.name }

func (s *recordSink) Record(image []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, image)
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// emptyLoader misses everything.
type emptyLoader struct{}

func (emptyLoader) Load(_ context.Context, id string) (scriptengine.CodeObject, error) {
	return nil, errors.NotFound(errors.PhaseLoad, id)
}

func passthroughMapper(logical string) (string, error) { return logical, nil }

func newTestBackend(t *testing.T) *WazeroBackend {
	t.Helper()
	b, err := New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestEmitConst(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	sink := &recordSink{name: "$frag-test-1#UD"}

	res, err := b.Emit(ctx, &scriptengine.EmitRequest{
		Submission: &scriptengine.Submission{
			ID:           1,
			AssemblyName: "$frag-test-1#1",
			Payload:      wasmConst42(),
		},
		Container:      sink,
		Loader:         emptyLoader{},
		Mapper:         passthroughMapper,
		RecoverOnError: true,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !res.Success || res.Entry == nil {
		t.Fatalf("Emit not successful: %+v", res)
	}
	if res.Fallback != nil {
		t.Error("unexpected fallback image")
	}
	if sink.count() != 1 {
		t.Errorf("container recorded %d images, want 1", sink.count())
	}

	out, err := res.Entry(ctx, nil)
	if err != nil {
		t.Fatalf("entry call: %v", err)
	}
	if len(out) != 1 || out[0] != 42 {
		t.Errorf("entry = %v, want [42]", out)
	}
}

func TestEmitNamedEntry(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	res, err := b.Emit(ctx, &scriptengine.EmitRequest{
		Submission: &scriptengine.Submission{
			ID:           1,
			AssemblyName: "$frag-test-2#1",
			Payload:      wasmAdd(),
			EntryName:    "add",
		},
		Container:      &recordSink{name: "sink"},
		Loader:         emptyLoader{},
		Mapper:         passthroughMapper,
		RecoverOnError: true,
	})
	if err != nil || !res.Success {
		t.Fatalf("Emit = %+v, %v", res, err)
	}

	out, err := res.Entry(ctx, []uint64{2, 3})
	if err != nil {
		t.Fatalf("entry call: %v", err)
	}
	if len(out) != 1 || out[0] != 5 {
		t.Errorf("add(2,3) = %v, want [5]", out)
	}
}

func TestEmitCompileError(t *testing.T) {
	b := newTestBackend(t)

	res, err := b.Emit(context.Background(), &scriptengine.EmitRequest{
		Submission: &scriptengine.Submission{
			ID:           1,
			AssemblyName: "$frag-test-3#1",
			Payload:      []byte("not wasm at all"),
		},
		Container:      &recordSink{name: "sink"},
		Loader:         emptyLoader{},
		Mapper:         passthroughMapper,
		RecoverOnError: true,
	})
	if err != nil {
		t.Fatalf("Emit should recover, got %v", err)
	}
	if res.Success || res.Entry != nil {
		t.Error("broken payload reported success")
	}
	if len(res.Diagnostics) == 0 || res.Diagnostics[0].Severity != scriptengine.SeverityError {
		t.Errorf("diagnostics = %+v, want one error", res.Diagnostics)
	}
}

func TestEmitFallback(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	sink := &recordSink{name: "$frag-test-4#UD"}

	res, err := b.Emit(ctx, &scriptengine.EmitRequest{
		Submission: &scriptengine.Submission{
			ID:           1,
			AssemblyName: "$frag-test-4#1",
			ModuleName:   "mylib",
			Payload:      wasmConst42(),
		},
		Container:      sink,
		Loader:         emptyLoader{},
		Mapper:         passthroughMapper,
		RecoverOnError: true,
	})
	if err != nil || !res.Success {
		t.Fatalf("Emit = %+v, %v", res, err)
	}
	if res.Fallback == nil {
		t.Fatal("expected a fallback image")
	}
	if res.Fallback.Name() != "mylib" {
		t.Errorf("fallback name = %q, want mylib", res.Fallback.Name())
	}
	if sink.count() != 0 {
		t.Error("fallback fragment was recorded into the primary container")
	}

	out, err := res.Entry(ctx, nil)
	if err != nil || len(out) != 1 || out[0] != 42 {
		t.Errorf("fallback entry = %v, %v", out, err)
	}
}

func TestEmitCollectibleNamedModule(t *testing.T) {
	b := newTestBackend(t)

	res, err := b.Emit(context.Background(), &scriptengine.EmitRequest{
		Submission: &scriptengine.Submission{
			ID:           1,
			AssemblyName: "$frag-test-5#1",
			ModuleName:   "mylib",
			Collectible:  true,
			Payload:      wasmConst42(),
		},
		Container:      &recordSink{name: "sink"},
		Loader:         emptyLoader{},
		Mapper:         passthroughMapper,
		RecoverOnError: true,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if res.Success {
		t.Error("self-named reclaimable fragment must not succeed")
	}
	if len(res.Diagnostics) == 0 || !strings.Contains(res.Diagnostics[0].Message, "mylib") {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}
}

func TestEmitUnresolvedReference(t *testing.T) {
	b := newTestBackend(t)

	res, err := b.Emit(context.Background(), &scriptengine.EmitRequest{
		Submission: &scriptengine.Submission{
			ID:           1,
			AssemblyName: "$frag-test-6#1",
			References:   []string{"ghostlib"},
			Payload:      wasmConst42(),
		},
		Container:      &recordSink{name: "sink"},
		Loader:         emptyLoader{},
		Mapper:         passthroughMapper,
		RecoverOnError: true,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if res.Success {
		t.Error("unresolved reference reported success")
	}
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0].Message, "ghostlib") {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}
}

func TestEmitMapperFailureAborts(t *testing.T) {
	b := newTestBackend(t)
	boom := errors.Internal(errors.PhaseBuild, "policy violation")

	_, err := b.Emit(context.Background(), &scriptengine.EmitRequest{
		Submission: &scriptengine.Submission{
			ID:           1,
			AssemblyName: "$frag-test-7#1",
			References:   []string{"$frag-test-7#0"},
			Payload:      wasmConst42(),
		},
		Container: &recordSink{name: "sink"},
		Loader:    emptyLoader{},
		Mapper: func(string) (string, error) {
			return "", boom
		},
		RecoverOnError: true,
	})
	if !stderrors.Is(err, boom) {
		t.Errorf("Emit = %v, want mapper error", err)
	}
}

func TestEmitCancelled(t *testing.T) {
	b := newTestBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Emit(ctx, &scriptengine.EmitRequest{
		Submission: &scriptengine.Submission{
			ID:           1,
			AssemblyName: "$frag-test-8#1",
			Payload:      wasmConst42(),
		},
		Container:      &recordSink{name: "sink"},
		Loader:         emptyLoader{},
		Mapper:         passthroughMapper,
		RecoverOnError: true,
	})
	if err == nil {
		t.Fatal("Emit on a cancelled context should fail")
	}
	if !stderrors.Is(err, errors.Cancelled(errors.PhaseEmit, nil)) {
		t.Errorf("Emit = %v, want cancelled kind", err)
	}
}
