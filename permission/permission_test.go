package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/permguard/bitfield"
	"github.com/MrEthical07/permguard/procedure"
)

const (
	permRead  bitfield.Bits = 1 << 0
	permWrite bitfield.Bits = 1 << 1
)

var perms = bitfield.MustTable("Perms", map[string]bitfield.Bits{
	"READ":  permRead,
	"WRITE": permWrite,
})

type fakeContext struct {
	flags   []string
	err     error
	table   *bitfield.Table
	fetches int
}

func (f *fakeContext) UserPermissions(context.Context) ([]string, error) {
	f.fetches++
	return f.flags, f.err
}

func (f *fakeContext) PermissionSet() *bitfield.Table {
	return f.table
}

func authenticated() procedure.Builder[*fakeContext] {
	return procedure.New[*fakeContext]().Use(func(ctx context.Context, c *fakeContext, next procedure.Next[*fakeContext]) (any, error) {
		if c == nil {
			return nil, procedure.NewError(procedure.CodeUnauthorized, "not authenticated")
		}
		return next(ctx, c)
	})
}

func run(t *testing.T, required any, c *fakeContext) (any, bool, error) {
	t.Helper()
	called := false
	h := CreatePermissionProtectedProcedure(authenticated(), required).Handle(func(context.Context, *fakeContext) (any, error) {
		called = true
		return "result", nil
	})
	out, err := h(context.Background(), c)
	return out, called, err
}

func TestCallerWithFlagPasses(t *testing.T) {
	out, called, err := run(t, "READ", &fakeContext{flags: []string{"READ", "WRITE"}, table: perms})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("next stage not invoked")
	}
	if out != "result" {
		t.Fatalf("next stage result not propagated: %v", out)
	}
}

func TestCallerMissingFlagRejected(t *testing.T) {
	_, called, err := run(t, "WRITE", &fakeContext{flags: []string{"READ"}, table: perms})
	if called {
		t.Fatal("next stage must not run")
	}

	var pe *procedure.Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *procedure.Error, got %v", err)
	}
	if pe.Code != procedure.CodeUnauthorized || string(pe.Code) != "unauthorized" {
		t.Fatalf("unexpected code %q", pe.Code)
	}
	if pe.Message != "Missing required permission" {
		t.Fatalf("unexpected message %q", pe.Message)
	}
}

func TestCombinedBitsRequireAll(t *testing.T) {
	_, called, err := run(t, permRead|permWrite, &fakeContext{flags: []string{"READ"}, table: perms})
	if called || procedure.CodeOf(err) != procedure.CodeUnauthorized {
		t.Fatalf("expected rejection, got called=%v err=%v", called, err)
	}

	_, called, err = run(t, []string{"READ", "WRITE"}, &fakeContext{flags: []string{"WRITE", "READ"}, table: perms})
	if err != nil || !called {
		t.Fatalf("expected pass, got called=%v err=%v", called, err)
	}
}

func TestZeroRequirementAlwaysPasses(t *testing.T) {
	_, called, err := run(t, 0, &fakeContext{table: perms})
	if err != nil || !called {
		t.Fatalf("expected pass, got called=%v err=%v", called, err)
	}
}

func TestAccessorErrorPropagatesUnchanged(t *testing.T) {
	fetchErr := errors.New("permissions backend down")
	_, called, err := run(t, "READ", &fakeContext{err: fetchErr, table: perms})
	if called {
		t.Fatal("next stage must not run")
	}
	if err != fetchErr {
		t.Fatalf("expected the accessor error itself, got %v", err)
	}
}

func TestUnknownFlagIsNotADenial(t *testing.T) {
	_, called, err := run(t, "READ", &fakeContext{flags: []string{"READ", "DELETE"}, table: perms})
	if called {
		t.Fatal("next stage must not run")
	}
	if !errors.Is(err, bitfield.ErrInvalidFlag) {
		t.Fatalf("expected InvalidFlag, got %v", err)
	}

	_, _, err = run(t, "ADMIN", &fakeContext{flags: []string{"READ"}, table: perms})
	if !errors.Is(err, bitfield.ErrInvalidFlag) {
		t.Fatalf("expected InvalidFlag for required permission, got %v", err)
	}
}

func TestFlagsFetchedPerRequest(t *testing.T) {
	c := &fakeContext{flags: []string{"READ"}, table: perms}
	h := CreatePermissionProtectedProcedure(authenticated(), "READ").Handle(func(context.Context, *fakeContext) (any, error) {
		return nil, nil
	})
	for i := 0; i < 3; i++ {
		if _, err := h(context.Background(), c); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if c.fetches != 3 {
		t.Fatalf("expected one fetch per request, got %d", c.fetches)
	}
}

func TestBaseStageStillEnforced(t *testing.T) {
	_, called, err := run(t, "READ", nil)
	if called {
		t.Fatal("next stage must not run")
	}
	var pe *procedure.Error
	if !errors.As(err, &pe) || pe.Message != "not authenticated" {
		t.Fatalf("expected base stage rejection, got %v", err)
	}
}

func TestAuthorizeDecision(t *testing.T) {
	d, err := Authorize(context.Background(), &fakeContext{flags: []string{"READ"}, table: perms}, []string{"READ", "WRITE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if d.Required != permRead|permWrite || d.Granted != permRead {
		t.Fatalf("unexpected masks: required=%#x granted=%#x", uint64(d.Required), uint64(d.Granted))
	}
	if len(d.Missing) != 1 || d.Missing[0] != "WRITE" {
		t.Fatalf("unexpected missing: %v", d.Missing)
	}

	d, err = Authorize(context.Background(), &fakeContext{flags: []string{"READ", "WRITE"}, table: perms}, "WRITE")
	if err != nil || !d.Allowed || d.Missing != nil {
		t.Fatalf("expected allow, got %+v %v", d, err)
	}
}

func TestObserverSeesEveryCheck(t *testing.T) {
	var decisions []Decision
	var errs []error
	obs := ObserverFunc(func(_ context.Context, d Decision, err error, elapsed time.Duration) {
		if elapsed < 0 {
			t.Errorf("negative elapsed %v", elapsed)
		}
		decisions = append(decisions, d)
		errs = append(errs, err)
	})

	b := CreatePermissionProtectedProcedure(authenticated(), "WRITE", WithObserver(obs), WithObserver(nil))
	h := b.Handle(func(context.Context, *fakeContext) (any, error) { return nil, nil })

	_, _ = h(context.Background(), &fakeContext{flags: []string{"WRITE"}, table: perms})
	_, _ = h(context.Background(), &fakeContext{flags: []string{"READ"}, table: perms})
	_, _ = h(context.Background(), &fakeContext{err: errors.New("down"), table: perms})

	if len(decisions) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(decisions))
	}
	if !decisions[0].Allowed || decisions[1].Allowed {
		t.Fatalf("unexpected decisions: %+v", decisions)
	}
	if errs[0] != nil || errs[1] != nil || errs[2] == nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
