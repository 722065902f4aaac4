package service

import (
	"errors"
	"io"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/odvcencio/pmrhub/internal/gitstore"
)

func TestOpenBlobStreamsContent(t *testing.T) {
	f := newFixture(t, Options{})
	ws, _ := f.addW1(t)

	res := resolve(t, f.svc, ws, "", "models/ODE.cellml")
	stream, err := f.svc.OpenBlob(res)
	if err != nil {
		t.Fatalf("OpenBlob: %v", err)
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<model name=\"ode\"/>\n" {
		t.Fatalf("content = %q", data)
	}
	if stream.Size != int64(len(data)) {
		t.Fatalf("size = %d, want %d", stream.Size, len(data))
	}
}

func TestOpenBlobRejectsTreesAndBoundaries(t *testing.T) {
	f := newFixture(t, Options{})
	w1, _ := f.addW1(t)
	w2, _ := f.addW2(t, true)

	for _, res := range []*PathResolution{
		resolve(t, f.svc, w1, "", "models/"),
		resolve(t, f.svc, w1, "", ""),
		resolve(t, f.svc, w2, "", "lib/src/a.c"),
	} {
		_, err := f.svc.OpenBlob(res)
		if !errors.Is(err, ErrNotABlob) {
			t.Fatalf("%q: expected ErrNotABlob, got %v", res.Path, err)
		}
		if !IsNotFound(err) {
			t.Fatalf("%q: not-a-blob must count as not found", res.Path)
		}
	}
}

func TestOpenBlobRequiresBlobObject(t *testing.T) {
	for _, target := range []*ObjectTarget{
		{Kind: gitstore.KindBlob},
		{Kind: gitstore.KindBlob, Object: &object.Tree{}},
	} {
		res := &PathResolution{Path: "mislabeled", Target: target}
		if _, err := OpenBlob(res, 0); !errors.Is(err, ErrNotABlob) {
			t.Fatalf("expected ErrNotABlob for %T, got %v", target.Object, err)
		}
	}
}

func TestOpenBlobSizeCap(t *testing.T) {
	f := newFixture(t, Options{MaxRawBytes: 4})
	ws, _ := f.addW1(t)

	if _, err := f.svc.OpenBlob(resolve(t, f.svc, ws, "", "models/ODE.cellml")); !errors.Is(err, ErrBlobTooLarge) {
		t.Fatalf("expected ErrBlobTooLarge, got %v", err)
	}
	if IsNotFound(ErrBlobTooLarge) {
		t.Fatal("oversized blobs are not a not-found condition")
	}
	stream, err := f.svc.OpenBlob(resolve(t, f.svc, ws, "", "README"))
	if err != nil {
		t.Fatalf("README fits the cap: %v", err)
	}
	stream.Close()

	uncapped, err := OpenBlob(resolve(t, f.svc, ws, "", "models/ODE.cellml"), 0)
	if err != nil {
		t.Fatalf("cap of 0 disables the limit: %v", err)
	}
	uncapped.Close()
}
