package eventbus

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type started struct{ name string }
type finished struct{ name string }

func TestOnAndEmit(t *testing.T) {
	b := New()
	var got []string
	On(b, func(_ context.Context, e started) { got = append(got, "a:"+e.name) })
	On(b, func(_ context.Context, e started) { got = append(got, "b:"+e.name) })
	On(b, func(_ context.Context, e finished) { got = append(got, "finished:"+e.name) })

	Emit(context.Background(), b, started{name: "x"})
	Emit(context.Background(), b, finished{name: "y"})

	want := []string{"a:x", "b:x", "finished:y"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	var got []string
	same := func(tag string) Handler[started] {
		return func(context.Context, started) { got = append(got, tag) }
	}
	offA := On(b, same("a"))
	On(b, same("b"))
	require.Equal(t, 2, Len[started](b))

	offA()
	offA()
	require.Equal(t, 1, Len[started](b))

	Emit(context.Background(), b, started{})
	require.Equal(t, []string{"b"}, got)
}

func TestUnsubscribeDuringEmit(t *testing.T) {
	b := New()
	calls := 0
	var off func()
	off = On(b, func(context.Context, started) {
		calls++
		off()
	})
	On(b, func(context.Context, started) { calls++ })

	Emit(context.Background(), b, started{})
	require.Equal(t, 2, calls)
	Emit(context.Background(), b, started{})
	require.Equal(t, 3, calls)
}

func TestGlobalBus(t *testing.T) {
	t.Cleanup(func() { Use(nil) })

	t.Run("no bus", func(t *testing.T) {
		Use(nil)
		off := Subscribe(func(context.Context, started) { t.Fatal("unexpected delivery") })
		Publish(context.Background(), started{})
		off()
	})

	t.Run("installed bus", func(t *testing.T) {
		Use(New())
		var got string
		off := Subscribe(func(_ context.Context, e started) { got = e.name })
		Publish(context.Background(), started{name: "hello"})
		require.Equal(t, "hello", got)

		off()
		Publish(context.Background(), started{name: "again"})
		require.Equal(t, "hello", got)
	})
}
