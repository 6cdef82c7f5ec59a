package fsconn

import (
	"context"
	"testing"
)

func TestOpenDispatchesByScheme(t *testing.T) {
	dir := t.TempDir()

	conn, err := Open(context.Background(), dir+"/", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := conn.(*Local); !ok {
		t.Fatalf("expected *Local for bare path, got %T", conn)
	}

	conn, err = Open(context.Background(), "nil://", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := conn.(*Noop); !ok {
		t.Fatalf("expected *Noop for nil://, got %T", conn)
	}

	conn, err = Open(context.Background(), "clipboard://", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := conn.(*Clipboard); !ok {
		t.Fatalf("expected *Clipboard for clipboard://, got %T", conn)
	}

	if _, err := Open(context.Background(), "ftp://example.com/x", false, nil); err == nil {
		t.Fatal("expected error for unrecognized scheme")
	}
}
