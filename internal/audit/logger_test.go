package audit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoggerWritesEntries(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)

	l.Info("LOGIN: Pengguna berhasil login.", Fields{"email": "a@b.com", "userId": 42})
	l.Warn("REGISTRASI GAGAL: Email sudah terdaftar.", Fields{"email": "a@b.com"})

	l.Close()
	l.WaitClosed()

	out := buf.String()
	require.Contains(t, out, "LOGIN: Pengguna berhasil login.")
	require.Contains(t, out, `"email":"a@b.com"`)
	require.Contains(t, out, `"userId":42`)
	require.Contains(t, out, `"level":"warn"`)
}

func TestLoggerFlushesOnCancel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	ctx, cancel := context.WithCancel(context.Background())

	l.Error("LOGOUT ERROR: Terjadi kesalahan.", Fields{"userId": 1})
	l.Start(ctx)
	cancel()
	l.WaitClosed()

	require.Contains(t, buf.String(), "LOGOUT ERROR: Terjadi kesalahan.")
}

func TestLoggerDropsWhenFull(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	// never started: the inbox fills up and further entries must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			l.Info("entry", nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recording blocked on a full inbox")
	}
}
