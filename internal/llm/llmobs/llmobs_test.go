package llmobs

import (
	"context"
	"errors"
	"testing"
)

type oracleFunc func(ctx context.Context, system, user string) (string, error)

func (f oracleFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

func TestWrapPassesThrough(t *testing.T) {
	o := Wrap(oracleFunc(func(ctx context.Context, system, user string) (string, error) {
		return system + "|" + user, nil
	}), "test")
	out, err := o.Complete(context.Background(), "s", "u")
	if err != nil || out != "s|u" {
		t.Errorf("Expected s|u, got %q err=%v", out, err)
	}
}

func TestWrapReturnsError(t *testing.T) {
	boom := errors.New("boom")
	o := Wrap(oracleFunc(func(ctx context.Context, system, user string) (string, error) {
		return "partial", boom
	}), "test")
	out, err := o.Complete(context.Background(), "s", "u")
	if !errors.Is(err, boom) || out != "" {
		t.Errorf("Expected empty output and boom, got %q %v", out, err)
	}
}
