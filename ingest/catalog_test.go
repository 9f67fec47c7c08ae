package ingest

import "testing"

func TestCatalog_RegisterAndLookup(t *testing.T) {
	c := newCatalog()

	if _, ok := c.lookup([]byte("cpu,host=a")); ok {
		t.Fatal("expected no entry before register")
	}

	c.register([]byte("cpu,host=a"), ID(1))

	id, ok := c.lookup([]byte("cpu,host=a"))
	if !ok || id != ID(1) {
		t.Fatalf("lookup = %v, %v; want 1, true", id, ok)
	}

	name, ok := c.name(ID(1))
	if !ok || string(name) != "cpu,host=a" {
		t.Fatalf("name = %q, %v; want cpu,host=a, true", name, ok)
	}

	if c.len() != 1 {
		t.Fatalf("len=%d, want 1", c.len())
	}
}

func TestCatalog_PrivateCopyOfName(t *testing.T) {
	c := newCatalog()

	scratch := []byte("cpu,host=a")
	c.register(scratch, ID(1))

	// Mutating the caller's buffer after register must not corrupt the
	// catalog's stored name.
	scratch[0] = 'X'

	name, _ := c.name(ID(1))
	if string(name) != "cpu,host=a" {
		t.Fatalf("catalog name mutated by caller's buffer: %q", name)
	}
}
